package anvil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/Tnze/go-mc/nbt"
	"github.com/astei/anvilview/document"
)

// Writer assembles a region file image in memory. Chunks are laid out in the order they are added.
// Nothing in the read path uses it; it exists to build region fixtures in tests.
type Writer struct {
	locations  [regionEntries]uint32
	timestamps [regionEntries]uint32
	sectors    bytes.Buffer
}

func NewWriter() *Writer {
	return &Writer{}
}

// PutRaw stores an already framed payload (length, compression tag, data) for a chunk, padded to whole
// sectors.
func (w *Writer) PutRaw(chunkX, chunkZ int, framed []byte, modified time.Time) {
	sectors := (len(framed) + SectorSize - 1) / SectorSize
	start := 2 + w.sectors.Len()/SectorSize

	index := headerOffset(chunkX, chunkZ) / 4
	w.locations[index] = uint32(start)<<8 | uint32(sectors&0xff)
	w.timestamps[index] = uint32(modified.Unix())

	w.sectors.Write(framed)
	w.sectors.Write(make([]byte, sectors*SectorSize-len(framed)))
}

// Put compresses payload with the given scheme and stores it for a chunk.
func (w *Writer) Put(chunkX, chunkZ int, compression document.Compression, payload []byte, modified time.Time) error {
	var compressed bytes.Buffer
	stream, err := document.Compress(compression, &compressed)
	if err != nil {
		return err
	}
	if _, err = stream.Write(payload); err != nil {
		return err
	}
	if err = stream.Close(); err != nil {
		return err
	}

	framed := make([]byte, payloadHeader, payloadHeader+compressed.Len())
	binary.BigEndian.PutUint32(framed, uint32(compressed.Len()+1))
	framed[4] = byte(compression)
	w.PutRaw(chunkX, chunkZ, append(framed, compressed.Bytes()...), modified)
	return nil
}

// PutNBT encodes v as an unnamed NBT compound and stores it zlib-compressed, as the game does.
func (w *Writer) PutNBT(chunkX, chunkZ int, v any) error {
	var buf bytes.Buffer
	if err := nbt.NewEncoder(&buf).Encode(v, ""); err != nil {
		return fmt.Errorf("could not encode chunk %d,%d: %w", chunkX, chunkZ, err)
	}
	return w.Put(chunkX, chunkZ, document.CompressionZlib, buf.Bytes(), time.Now())
}

// WriteTo writes the complete region image.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	var header bytes.Buffer
	if err := binary.Write(&header, binary.BigEndian, w.locations); err != nil {
		return 0, err
	}
	if err := binary.Write(&header, binary.BigEndian, w.timestamps); err != nil {
		return 0, err
	}
	n, err := header.WriteTo(out)
	if err != nil {
		return n, err
	}
	m, err := out.Write(w.sectors.Bytes())
	return n + int64(m), err
}

// Bytes returns the complete region image.
func (w *Writer) Bytes() []byte {
	var out bytes.Buffer
	_, _ = w.WriteTo(&out)
	return out.Bytes()
}
