// Package export writes the chunks loaded in a dimension to the Slime world format.
package export

import (
	"bytes"
	"encoding/binary"
	"io"
	"sort"

	"github.com/Tnze/go-mc/nbt"
	"github.com/astei/anvilview/block"
	"github.com/astei/anvilview/chunk"
	"github.com/astei/anvilview/resource"
	"github.com/astei/anvilview/world"
	"github.com/klauspost/compress/zstd"
)

const (
	SlimeHeader  = 0xB10B
	SlimeVersion = 1
)

func slimeChunkKey(coord world.ChunkCoord) int64 {
	return (int64(coord.Z) * 0x7fffffff) + int64(coord.X)
}

// WriteSlime writes every chunk loaded in dim. Chunks that were never loaded are not part of the output.
func WriteSlime(writer io.Writer, dim *world.Dimension) error {
	zstdWriter, err := zstd.NewWriter(io.Discard)
	if err != nil {
		return err
	}
	defer zstdWriter.Close()
	w := &slimeWriter{writer: writer, dim: dim, zstdWriter: zstdWriter}
	return w.writeWorld()
}

type slimeWriter struct {
	writer     io.Writer
	dim        *world.Dimension
	zstdWriter *zstd.Encoder
}

type paletteEntry struct {
	Name       string            `nbt:"Name"`
	Properties map[string]string `nbt:"Properties"`
}

// A single-entry palette is written without data, as the game does.
type blockStates struct {
	Palette []paletteEntry `nbt:"palette"`
	Data    []int64        `nbt:"data"`
}

type biomes struct {
	Palette []string `nbt:"palette"`
	Data    []int64  `nbt:"data"`
}

func (w *slimeWriter) writeWorld() (err error) {
	if err = w.writeHeader(); err != nil {
		return
	}
	if err = w.writeChunks(); err != nil {
		return
	}
	if err = w.writeTileEntities(); err != nil {
		return
	}
	if err = w.writeEntities(); err != nil {
		return
	}
	return w.writeExtra()
}

func (w *slimeWriter) writeHeader() error {
	var header struct {
		Magic   uint16
		Version uint8
	}
	header.Magic = SlimeHeader
	header.Version = SlimeVersion
	return binary.Write(w.writer, binary.BigEndian, header)
}

func (w *slimeWriter) writeChunks() (err error) {
	coords := w.dim.Loaded()
	sort.Slice(coords, func(one, two int) bool {
		return slimeChunkKey(coords[one]) < slimeChunkKey(coords[two])
	})

	var out bytes.Buffer
	if err = binary.Write(&out, binary.BigEndian, uint32(len(coords))); err != nil {
		return
	}
	for _, coord := range coords {
		c, ok := w.dim.Chunk(coord)
		if !ok {
			continue
		}
		if err = w.writeChunk(coord, c, &out); err != nil {
			return
		}
	}
	return w.writeZstdCompressed(&out)
}

// Chunks are keyed by the position they were loaded from, not by their own xPos and zPos tags.
func (w *slimeWriter) writeChunk(coord world.ChunkCoord, c *chunk.Chunk, out io.Writer) (err error) {
	var header struct {
		X, Z   int32
		Slices uint32
	}
	header.X = int32(coord.X)
	header.Z = int32(coord.Z)
	header.Slices = uint32(len(c.Subchunks))
	if err = binary.Write(out, binary.BigEndian, header); err != nil {
		return
	}

	for _, sub := range c.Subchunks {
		if err = binary.Write(out, binary.BigEndian, sub != nil); err != nil {
			return
		}
		if sub == nil {
			continue
		}
		if err = w.writeNbt(blockStatesOf(sub), "block_states", out); err != nil {
			return
		}
		if err = w.writeNbt(biomesOf(sub), "biomes", out); err != nil {
			return
		}
	}
	return
}

func blockStatesOf(sub *chunk.Subchunk) blockStates {
	var states blockStates
	for _, state := range sub.Blocks.Palette() {
		states.Palette = append(states.Palette, paletteEntryOf(state))
	}
	if len(states.Palette) > 1 {
		states.Data = toLongs(sub.Blocks.Words())
	}
	return states
}

func paletteEntryOf(state *block.State) paletteEntry {
	entry := paletteEntry{Name: state.Name().String(), Properties: map[string]string{}}
	for _, p := range state.Properties() {
		entry.Properties[p.Name.Short()] = p.Value.Short()
	}
	return entry
}

func biomesOf(sub *chunk.Subchunk) biomes {
	var b biomes
	for _, id := range sub.Biomes.Palette() {
		if id.IsZero() {
			id = resource.Minecraft("plains")
		}
		b.Palette = append(b.Palette, id.String())
	}
	if len(b.Palette) > 1 {
		b.Data = toLongs(sub.Biomes.Words())
	}
	return b
}

func toLongs(words []uint64) []int64 {
	longs := make([]int64, len(words))
	for i, word := range words {
		longs[i] = int64(word)
	}
	return longs
}

func (w *slimeWriter) writeZstdCompressed(buf *bytes.Buffer) (err error) {
	uncompressedSize := buf.Len()

	var compressedOutput bytes.Buffer
	w.zstdWriter.Reset(&compressedOutput)
	if _, err = buf.WriteTo(w.zstdWriter); err != nil {
		return
	}
	if err = w.zstdWriter.Close(); err != nil {
		return
	}
	w.zstdWriter.Reset(io.Discard)

	if err = binary.Write(w.writer, binary.BigEndian, uint32(compressedOutput.Len())); err != nil {
		return
	}
	if err = binary.Write(w.writer, binary.BigEndian, uint32(uncompressedSize)); err != nil {
		return
	}
	_, err = compressedOutput.WriteTo(w.writer)
	return
}

// Entities are not decoded, so the tile entity and entity lists are always empty.
func (w *slimeWriter) writeTileEntities() error {
	var compound struct {
		Tiles []map[string]any `nbt:"tiles"`
	}
	return w.writeCompressedNbt(compound, "tiles")
}

func (w *slimeWriter) writeEntities() error {
	var compound struct {
		Entities []map[string]any `nbt:"entities"`
	}
	return w.writeCompressedNbt(compound, "entities")
}

func (w *slimeWriter) writeExtra() error {
	return w.writeCompressedNbt(map[string]any{}, "extra")
}

func (w *slimeWriter) writeCompressedNbt(compound any, tagName string) (err error) {
	var buf bytes.Buffer
	if err = nbt.NewEncoder(&buf).Encode(compound, tagName); err != nil {
		return
	}
	return w.writeZstdCompressed(&buf)
}

func (w *slimeWriter) writeNbt(compound any, tagName string, out io.Writer) (err error) {
	var buf bytes.Buffer
	if err = nbt.NewEncoder(&buf).Encode(compound, tagName); err != nil {
		return
	}
	if err = binary.Write(out, binary.BigEndian, uint32(buf.Len())); err != nil {
		return
	}
	_, err = buf.WriteTo(out)
	return
}
