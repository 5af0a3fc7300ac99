// Package anvil reads chunks out of Anvil region files (r.<x>.<z>.mca), each holding a 32x32 grid of
// chunks behind an 8 KiB header of sector locations and timestamps.
package anvil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/astei/anvilview/document"
)

const (
	SectorSize     = 4096
	RegionWidth    = 32
	regionEntries  = RegionWidth * RegionWidth
	timestampTable = regionEntries * 4
	payloadHeader  = 5
	externalFlag   = 0x80
)

var ErrTruncatedHeader = errors.New("anvil: chunk header is truncated")
var ErrUnallocated = errors.New("anvil: chunk is allocated, but stream is missing")
var ErrInconsistentExternalFlag = errors.New("anvil: chunk has both internal and external streams")
var ErrExternalChunkUnsupported = errors.New("anvil: external chunk streams are not supported")
var ErrNegativeDeclaredSize = errors.New("anvil: declared chunk size is negative")
var ErrDeclaredSizeExceedsSector = errors.New("anvil: declared chunk size exceeds its sectors")

// RegionCoord returns the region holding the given chunk.
func RegionCoord(chunkX, chunkZ int) (int, int) {
	return chunkX >> 5, chunkZ >> 5
}

// RegionPath returns the region file of a chunk inside a dimension save directory.
func RegionPath(saveDir string, chunkX, chunkZ int) string {
	rx, rz := RegionCoord(chunkX, chunkZ)
	return filepath.Join(saveDir, "region", fmt.Sprintf("r.%d.%d.mca", rx, rz))
}

// Region provides random access to the chunks of one region file. It is safe for concurrent reads as long
// as the underlying io.ReaderAt is.
type Region struct {
	source io.ReaderAt
	Name   string
}

// Open opens a region file from disk.
func Open(path string) (*Region, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewRegion(file), nil
}

// NewRegion creates a Region. The ownership of the source is transferred to the region.
func NewRegion(source io.ReaderAt) *Region {
	region := &Region{source: source}
	if file, ok := source.(*os.File); ok {
		region.Name = file.Name()
	}
	return region
}

// headerOffset returns the byte offset of a chunk's location entry. Coordinates may be absolute chunk
// coordinates; only their low five bits are used.
func headerOffset(chunkX, chunkZ int) int64 {
	return int64(((chunkX & 31) | ((chunkZ & 31) << 5)) << 2)
}

func (region *Region) readUint32(offset int64) (uint32, error) {
	var raw [4]byte
	if _, err := region.source.ReadAt(raw[:], offset); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(raw[:]), nil
}

// location returns the byte offset and the byte length of the sectors allocated to a chunk.
func (region *Region) location(chunkX, chunkZ int) (offset int64, size int, err error) {
	entry, err := region.readUint32(headerOffset(chunkX, chunkZ))
	if err != nil {
		return 0, 0, fmt.Errorf("could not read location entry: %w", err)
	}
	offset = int64(entry>>8) * SectorSize
	size = int(entry&0xff) * SectorSize
	return
}

// ChunkExists reports whether the region has sectors allocated to the chunk.
func (region *Region) ChunkExists(chunkX, chunkZ int) bool {
	entry, err := region.readUint32(headerOffset(chunkX, chunkZ))
	return err == nil && entry != 0
}

// Timestamp returns the last modification time recorded for the chunk.
func (region *Region) Timestamp(chunkX, chunkZ int) (time.Time, error) {
	seconds, err := region.readUint32(timestampTable + headerOffset(chunkX, chunkZ))
	if err != nil {
		return time.Time{}, fmt.Errorf("could not read timestamp entry: %w", err)
	}
	return time.Unix(int64(seconds), 0).UTC(), nil
}

// ChunkPayload returns the compression scheme and compressed bytes of a chunk.
func (region *Region) ChunkPayload(chunkX, chunkZ int) (document.Compression, []byte, error) {
	offset, size, err := region.location(chunkX, chunkZ)
	if err != nil {
		return 0, nil, err
	}
	if size < payloadHeader {
		return 0, nil, ErrTruncatedHeader
	}

	sectors := make([]byte, size)
	if _, err = region.source.ReadAt(sectors, offset); err != nil {
		return 0, nil, fmt.Errorf("could not read chunk sectors: %w", err)
	}

	var payloadInfo struct {
		Length      int32
		Compression byte
	}
	if err = binary.Read(bytes.NewReader(sectors[:payloadHeader]), binary.BigEndian, &payloadInfo); err != nil {
		return 0, nil, fmt.Errorf("could not parse payload header: %w", err)
	}

	if payloadInfo.Length == 0 {
		return 0, nil, ErrUnallocated
	}
	if payloadInfo.Compression&externalFlag != 0 {
		if payloadInfo.Length != 1 {
			return 0, nil, ErrInconsistentExternalFlag
		}
		return 0, nil, ErrExternalChunkUnsupported
	}
	if payloadInfo.Length < 0 {
		return 0, nil, fmt.Errorf("%w: %d", ErrNegativeDeclaredSize, payloadInfo.Length)
	}
	n := int(payloadInfo.Length) - 1
	if n > size-payloadHeader {
		return 0, nil, fmt.Errorf("%w: declared %d, sectors hold %d", ErrDeclaredSizeExceedsSector, n, size-payloadHeader)
	}

	return document.Compression(payloadInfo.Compression), sectors[payloadHeader : payloadHeader+n], nil
}

// ReadChunk reads and decodes the chunk at the given coordinates.
func (region *Region) ReadChunk(chunkX, chunkZ int) (document.Compound, error) {
	compression, payload, err := region.ChunkPayload(chunkX, chunkZ)
	if err != nil {
		return nil, err
	}
	return document.Decode(compression, bytes.NewReader(payload))
}

func (region *Region) Close() error {
	if closer, ok := region.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
