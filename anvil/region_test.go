package anvil

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Tnze/go-mc/nbt"
	"github.com/astei/anvilview/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testChunk struct {
	Status string `nbt:"Status"`
	XPos   int32  `nbt:"xPos"`
	ZPos   int32  `nbt:"zPos"`
}

func encodeTestChunk(w io.Writer, c testChunk) error {
	return nbt.NewEncoder(w).Encode(c, "")
}

// rawRegion builds a region image whose chunk (0, 0) points at sector 2 with the given sector count and
// whose sector 2 starts with the given bytes.
func rawRegion(sectorCount byte, payload []byte) *Region {
	image := make([]byte, 2*SectorSize+SectorSize)
	binary.BigEndian.PutUint32(image[0:4], uint32(2)<<8|uint32(sectorCount))
	copy(image[2*SectorSize:], payload)
	return NewRegion(bytes.NewReader(image))
}

func framed(length int32, compression byte) []byte {
	header := make([]byte, 5)
	binary.BigEndian.PutUint32(header, uint32(length))
	header[4] = compression
	return header
}

func TestReadChunkRoundTrip(t *testing.T) {
	for _, c := range []document.Compression{document.CompressionGzip, document.CompressionZlib, document.CompressionNone} {
		w := NewWriter()
		modified := time.Unix(1700000000, 0).UTC()

		var payload bytes.Buffer
		require.NoError(t, encodeTestChunk(&payload, testChunk{Status: "minecraft:full", XPos: 33, ZPos: -1}))
		require.NoError(t, w.Put(33, -1, c, payload.Bytes(), modified))

		region := NewRegion(bytes.NewReader(w.Bytes()))
		assert.True(t, region.ChunkExists(1, 31))
		assert.True(t, region.ChunkExists(33, -1))
		assert.False(t, region.ChunkExists(0, 0))

		root, err := region.ReadChunk(33, -1)
		require.NoError(t, err, c.String())
		status, _ := root.StringValue("Status")
		assert.Equal(t, "minecraft:full", status)
		x, _ := root.Int("xPos")
		assert.Equal(t, int64(33), x)

		ts, err := region.Timestamp(1, 31)
		require.NoError(t, err)
		assert.Equal(t, modified, ts)
	}
}

func TestReadChunkLargePayloadSpansSectors(t *testing.T) {
	w := NewWriter()
	var payload bytes.Buffer
	status := string(bytes.Repeat([]byte("x"), 3*SectorSize))
	require.NoError(t, encodeTestChunk(&payload, testChunk{Status: status}))
	require.NoError(t, w.Put(5, 6, document.CompressionNone, payload.Bytes(), time.Now()))

	root, err := NewRegion(bytes.NewReader(w.Bytes())).ReadChunk(5, 6)
	require.NoError(t, err)
	got, _ := root.StringValue("Status")
	assert.Equal(t, status, got)
}

func TestHeaderErrors(t *testing.T) {
	cases := []struct {
		name    string
		region  *Region
		wantErr error
	}{
		{"zero sector count", rawRegion(0, nil), ErrTruncatedHeader},
		{"zero payload header", rawRegion(1, make([]byte, 5)), ErrUnallocated},
		{"external stream", rawRegion(1, framed(1, 0x82)), ErrExternalChunkUnsupported},
		{"external and internal stream", rawRegion(1, framed(20, 0x82)), ErrInconsistentExternalFlag},
		{"negative size", rawRegion(1, framed(-7, 2)), ErrNegativeDeclaredSize},
		{"size exceeds sectors", rawRegion(1, framed(SectorSize, 2)), ErrDeclaredSizeExceedsSector},
		{"unknown compression", rawRegion(1, append(framed(2, 9), 0)), document.ErrUnknownCompression},
		{"garbage document", rawRegion(1, append(framed(4, 3), 0x0a, 0xff, 0xff)), document.ErrMalformedDocument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.region.ReadChunk(0, 0)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestAllZeroEntryIsTruncated(t *testing.T) {
	region := NewRegion(bytes.NewReader(make([]byte, 2*SectorSize)))
	assert.False(t, region.ChunkExists(4, 4))
	_, err := region.ReadChunk(4, 4)
	assert.ErrorIs(t, err, ErrTruncatedHeader)
}

func TestDeclaredSizeAtSectorBoundary(t *testing.T) {
	// m-1 == sectorBytes-5 is the largest payload that fits.
	payload := append(framed(SectorSize-4, 3), make([]byte, SectorSize-5)...)
	_, _, err := rawRegion(1, payload).ChunkPayload(0, 0)
	assert.NoError(t, err)
}

func TestRegionPath(t *testing.T) {
	assert.Equal(t, filepath.Join("world", "region", "r.0.0.mca"), RegionPath("world", 31, 0))
	assert.Equal(t, filepath.Join("world", "region", "r.1.-1.mca"), RegionPath("world", 32, -1))
	assert.Equal(t, filepath.Join("world", "region", "r.-1.-2.mca"), RegionPath("world", -1, -33))
}

func TestOpenFromDisk(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.PutNBT(0, 0, testChunk{Status: "minecraft:features"}))
	path := filepath.Join(t.TempDir(), "r.0.0.mca")
	require.NoError(t, os.WriteFile(path, w.Bytes(), 0o644))

	region, err := Open(path)
	require.NoError(t, err)
	defer region.Close()
	assert.Equal(t, path, region.Name)

	root, err := region.ReadChunk(0, 0)
	require.NoError(t, err)
	status, _ := root.StringValue("Status")
	assert.Equal(t, "minecraft:features", status)

	_, err = Open(filepath.Join(t.TempDir(), "missing.mca"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
