// Package chunk builds in-memory chunks out of decoded chunk documents.
package chunk

import (
	"github.com/astei/anvilview/block"
	"github.com/astei/anvilview/palette"
	"github.com/astei/anvilview/resource"
)

// SliceHeight is the number of blocks in one vertical slice.
const SliceHeight = 16

// Subchunk is one 16x16x16 slice of a chunk.
type Subchunk struct {
	Blocks *palette.Container[*block.State]
	// Biomes is always a fresh uniform container; biome data is not decoded yet.
	Biomes *palette.Container[resource.Location]
}

// SliceError records why a slice was dropped.
type SliceError struct {
	Index int
	Err   error
}

// Chunk is one column of the world. Subchunks[i] is the i-th slice counted from the bottom of the
// dimension; a nil entry is an absent slice. Subchunks always spans the full height of the layout, so
// slices above the last stored section are nil rather than cut off.
type Chunk struct {
	X, Z        int
	DataVersion int
	Status      string
	Subchunks   []*Subchunk
	Skipped     []SliceError
}

// Layout describes the vertical extent of a dimension in slices.
type Layout struct {
	MinSection int
	Sections   int
}

// LayoutFor returns the layout of a dimension spanning [minY, maxY).
func LayoutFor(minY, maxY int) Layout {
	return Layout{
		MinSection: floorDiv(minY, SliceHeight),
		Sections:   (maxY - minY) / SliceHeight,
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Block returns the block at chunk-relative coordinates, y counted from the bottom of the dimension.
// ok is false for absent slices and out of range coordinates.
func (c *Chunk) Block(x, y, z int) (state *block.State, ok bool) {
	if y < 0 {
		return nil, false
	}
	index := y / SliceHeight
	if index >= len(c.Subchunks) || c.Subchunks[index] == nil {
		return nil, false
	}
	state, err := c.Subchunks[index].Blocks.Get(x, y%SliceHeight, z)
	return state, err == nil
}

// Present returns the number of populated slices.
func (c *Chunk) Present() int {
	n := 0
	for _, sub := range c.Subchunks {
		if sub != nil {
			n++
		}
	}
	return n
}

// Release hands every palette reference held by the chunk back to the table.
func (c *Chunk) Release(table *block.Table) {
	for _, sub := range c.Subchunks {
		if sub == nil {
			continue
		}
		for _, state := range sub.Blocks.Palette() {
			table.Release(state)
		}
	}
}
