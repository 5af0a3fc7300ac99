// Package palette implements a fixed-size 3D dense array stored as a palette of distinct values
// plus a packed index array. The index width grows on demand and never shrinks.
package palette

import (
	"errors"
	"fmt"
	"math/bits"
)

const wordBits = 64

var ErrOutOfRange = errors.New("palette: coordinate out of range")
var ErrEmptyPalette = errors.New("palette: palette is empty")
var ErrDataLength = errors.New("palette: packed data has the wrong length")
var ErrPaletteIndex = errors.New("palette: packed index outside of palette")

// Geometry describes a container of 2^H x 2^H x 2^V cells.
type Geometry struct {
	HorizontalBits     uint8
	VerticalBits       uint8
	DefaultPaletteSize int
}

var (
	Blocks = Geometry{HorizontalBits: 4, VerticalBits: 4, DefaultPaletteSize: 16}
	Biomes = Geometry{HorizontalBits: 2, VerticalBits: 2, DefaultPaletteSize: 4}
)

func (g Geometry) Width() int  { return 1 << g.HorizontalBits }
func (g Geometry) Height() int { return 1 << g.VerticalBits }
func (g Geometry) Cells() int  { return 1 << (2*g.HorizontalBits + g.VerticalBits) }

func (g Geometry) index(x, y, z int) (int, error) {
	w, h := g.Width(), g.Height()
	if x < 0 || x >= w || z < 0 || z >= w || y < 0 || y >= h {
		return 0, fmt.Errorf("%w: (%d, %d, %d) in %dx%dx%d", ErrOutOfRange, x, y, z, w, h, w)
	}
	return x<<(g.HorizontalBits+g.VerticalBits) | z<<g.VerticalBits | y, nil
}

func (g Geometry) minBits() uint8 {
	return bitsFor(g.DefaultPaletteSize)
}

// bitsFor returns ceil(log2(n)), with a minimum of one bit.
func bitsFor(n int) uint8 {
	if n <= 2 {
		return 1
	}
	return uint8(bits.Len(uint(n - 1)))
}

func wordsFor(cells int, entriesPerWord uint8) int {
	return (cells + int(entriesPerWord) - 1) / int(entriesPerWord)
}

// Container holds one value per cell. It is not safe for concurrent mutation.
type Container[V comparable] struct {
	geometry       Geometry
	bitsPerEntry   uint8
	entriesPerWord uint8
	palette        []V
	inverse        map[V]int
	data           []uint64
}

// New creates a container with every cell set to fill.
func New[V comparable](g Geometry, fill V) *Container[V] {
	c := &Container[V]{
		geometry:     g,
		bitsPerEntry: g.minBits(),
		palette:      make([]V, 1, g.DefaultPaletteSize),
		inverse:      map[V]int{fill: 0},
	}
	c.palette[0] = fill
	c.entriesPerWord = wordBits / c.bitsPerEntry
	c.data = make([]uint64, wordsFor(g.Cells(), c.entriesPerWord))
	return c
}

// FromData initializes a container directly from a decoded palette and packed words. The bit width is
// derived from the palette length. A single-entry palette may come without any words, in which case
// every cell refers to that entry.
func FromData[V comparable](g Geometry, palette []V, data []uint64) (*Container[V], error) {
	if len(palette) == 0 {
		return nil, ErrEmptyPalette
	}

	c := &Container[V]{
		geometry:     g,
		bitsPerEntry: max(g.minBits(), bitsFor(len(palette))),
		palette:      append([]V(nil), palette...),
		inverse:      make(map[V]int, len(palette)),
	}
	c.entriesPerWord = wordBits / c.bitsPerEntry
	for i, v := range c.palette {
		if _, ok := c.inverse[v]; !ok {
			c.inverse[v] = i
		}
	}

	expected := wordsFor(g.Cells(), c.entriesPerWord)
	if len(data) == 0 && len(palette) == 1 {
		c.data = make([]uint64, expected)
		return c, nil
	}
	if len(data) != expected {
		return nil, fmt.Errorf("%w: got %d words, want %d at %d bits per entry", ErrDataLength, len(data), expected, c.bitsPerEntry)
	}
	c.data = append([]uint64(nil), data...)

	for i := 0; i < g.Cells(); i++ {
		if idx := c.entry(i); idx >= uint64(len(c.palette)) {
			return nil, fmt.Errorf("%w: cell %d refers to %d, palette has %d entries", ErrPaletteIndex, i, idx, len(c.palette))
		}
	}
	return c, nil
}

func (c *Container[V]) mask() uint64 {
	return (uint64(1) << c.bitsPerEntry) - 1
}

func (c *Container[V]) entry(index int) uint64 {
	word, slot := index/int(c.entriesPerWord), index%int(c.entriesPerWord)
	return (c.data[word] >> (uint(slot) * uint(c.bitsPerEntry))) & c.mask()
}

func (c *Container[V]) setEntry(index int, value uint64) {
	word, slot := index/int(c.entriesPerWord), index%int(c.entriesPerWord)
	shift := uint(slot) * uint(c.bitsPerEntry)
	c.data[word] &^= c.mask() << shift
	c.data[word] |= value << shift
}

// Get returns the value stored at (x, y, z).
func (c *Container[V]) Get(x, y, z int) (v V, err error) {
	index, err := c.geometry.index(x, y, z)
	if err != nil {
		return
	}
	return c.palette[c.entry(index)], nil
}

// Set stores value at (x, y, z), appending it to the palette if it is new.
func (c *Container[V]) Set(x, y, z int, value V) error {
	index, err := c.geometry.index(x, y, z)
	if err != nil {
		return err
	}

	id, ok := c.inverse[value]
	if !ok {
		if len(c.palette) >= 1<<c.bitsPerEntry {
			c.grow()
		}
		c.palette = append(c.palette, value)
		id = len(c.palette) - 1
		c.inverse[value] = id
	}
	c.setEntry(index, uint64(id))
	return nil
}

// grow widens every entry by one bit, repacking the cells in flat index order.
func (c *Container[V]) grow() {
	oldBits, oldPerWord, oldData := c.bitsPerEntry, c.entriesPerWord, c.data
	oldMask := c.mask()

	c.bitsPerEntry++
	c.entriesPerWord = wordBits / c.bitsPerEntry
	cells := c.geometry.Cells()
	c.data = make([]uint64, 0, wordsFor(cells, c.entriesPerWord))

	var word uint64
	filled := uint8(0)
	for i := 0; i < cells; i++ {
		old := (oldData[i/int(oldPerWord)] >> (uint(i%int(oldPerWord)) * uint(oldBits))) & oldMask
		word |= old << (uint(filled) * uint(c.bitsPerEntry))
		filled++
		if filled == c.entriesPerWord {
			c.data = append(c.data, word)
			word, filled = 0, 0
		}
	}
	if filled > 0 {
		c.data = append(c.data, word)
	}
}

func (c *Container[V]) Geometry() Geometry    { return c.geometry }
func (c *Container[V]) BitsPerEntry() uint8   { return c.bitsPerEntry }
func (c *Container[V]) EntriesPerWord() uint8 { return c.entriesPerWord }

// Len returns the palette size.
func (c *Container[V]) Len() int { return len(c.palette) }

// Palette returns a copy of the palette in index order.
func (c *Container[V]) Palette() []V {
	return append([]V(nil), c.palette...)
}

// Words returns a copy of the packed index array.
func (c *Container[V]) Words() []uint64 {
	return append([]uint64(nil), c.data...)
}

// Count returns how many cells refer to each palette entry.
func (c *Container[V]) Count() []int {
	counts := make([]int, len(c.palette))
	for i := 0; i < c.geometry.Cells(); i++ {
		counts[c.entry(i)]++
	}
	return counts
}
