package chunk

import (
	"errors"
	"fmt"

	"github.com/astei/anvilview/block"
	"github.com/astei/anvilview/document"
	"github.com/astei/anvilview/palette"
	"github.com/astei/anvilview/resource"
)

var ErrMalformedSection = errors.New("chunk: malformed section")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedSection, fmt.Sprintf(format, args...))
}

// Build walks the sections of a chunk document. A section that carries a Y tag is placed by it, any
// other section by its position in the list. Structural problems in a section only drop that slice.
// Only the first section for a slice is considered, even when it turns out to be malformed.
func Build(root document.Compound, layout Layout, table *block.Table) *Chunk {
	c := &Chunk{Subchunks: make([]*Subchunk, layout.Sections)}
	seen := make([]bool, layout.Sections)
	if v, ok := root.Int("DataVersion"); ok {
		c.DataVersion = int(v)
	}
	if v, ok := root.Int("xPos"); ok {
		c.X = int(v)
	}
	if v, ok := root.Int("zPos"); ok {
		c.Z = int(v)
	}
	c.Status, _ = root.StringValue("Status")

	sections, ok := root.List("sections")
	if !ok {
		return c
	}

	for position, node := range sections {
		index := position
		section, isCompound := node.(document.Compound)
		if isCompound {
			if y, ok := section.Int("Y"); ok {
				index = int(y) - layout.MinSection
			}
		}
		if index < 0 || index >= layout.Sections {
			continue
		}
		if seen[index] {
			continue
		}
		seen[index] = true

		if !isCompound {
			c.Skipped = append(c.Skipped, SliceError{Index: index, Err: malformed("section is a %s", node.Kind())})
			continue
		}
		sub, err := buildSubchunk(section, table)
		if err != nil {
			c.Skipped = append(c.Skipped, SliceError{Index: index, Err: err})
			continue
		}
		c.Subchunks[index] = sub
	}
	return c
}

func buildSubchunk(section document.Compound, table *block.Table) (*Subchunk, error) {
	states, ok := section.Compound("block_states")
	if !ok {
		return nil, malformed("missing block_states")
	}

	paletteList, ok := states.List("palette")
	if !ok {
		return nil, malformed("missing palette")
	}
	words, err := readWords(states)
	if err != nil {
		return nil, err
	}

	values := make([]block.Value, 0, len(paletteList))
	for i, node := range paletteList {
		v, err := readBlockValue(node)
		if err != nil {
			return nil, fmt.Errorf("palette entry %d: %w", i, err)
		}
		values = append(values, v)
	}

	interned := make([]*block.State, len(values))
	for i, v := range values {
		interned[i] = table.Intern(v)
	}
	blocks, err := palette.FromData(palette.Blocks, interned, words)
	if err != nil {
		for _, s := range interned {
			table.Release(s)
		}
		return nil, malformed("%v", err)
	}

	return &Subchunk{
		Blocks: blocks,
		Biomes: palette.New(palette.Biomes, resource.Location{}),
	}, nil
}

func readWords(states document.Compound) ([]uint64, error) {
	node, present := states["data"]
	if !present {
		return nil, malformed("missing data")
	}

	switch data := node.(type) {
	case document.LongArray:
		words := make([]uint64, len(data))
		for i, v := range data {
			words[i] = uint64(v)
		}
		return words, nil
	case document.List:
		words := make([]uint64, len(data))
		for i, elem := range data {
			w, ok := document.AsUint64(elem)
			if !ok {
				return nil, malformed("data word %d is a %s", i, elem.Kind())
			}
			words[i] = w
		}
		return words, nil
	}
	return nil, malformed("data is a %s", node.Kind())
}

func readBlockValue(node document.Node) (block.Value, error) {
	entry, ok := node.(document.Compound)
	if !ok {
		return block.Value{}, malformed("entry is a %s", node.Kind())
	}
	name, ok := entry.StringValue("Name")
	if !ok {
		return block.Value{}, malformed("entry has no Name")
	}

	v := block.Value{Name: resource.Parse(name), Properties: map[resource.Location]resource.Location{}}
	propsNode, present := entry["Properties"]
	if !present {
		return v, nil
	}
	props, ok := propsNode.(document.Compound)
	if !ok {
		return block.Value{}, malformed("Properties is a %s", propsNode.Kind())
	}
	for key, valueNode := range props {
		value, ok := document.Stringify(valueNode)
		if !ok {
			return block.Value{}, malformed("property %s is a %s", key, valueNode.Kind())
		}
		v.Properties[resource.Parse(key)] = resource.Parse(value)
	}
	return v, nil
}
