// Package block models block states and deduplicates them through an interning table, so that
// every structurally equal state in a world shares one *State.
package block

import (
	"encoding/binary"
	"sort"
	"strings"

	"github.com/astei/anvilview/resource"
	"github.com/cespare/xxhash/v2"
)

// Value is a block identifier plus its property map, as read from a save.
type Value struct {
	Name       resource.Location
	Properties map[resource.Location]resource.Location
}

// Property is one name/value pair of a block state.
type Property struct {
	Name  resource.Location
	Value resource.Location
}

// State is an interned, immutable block value. States handed out by the same Table can be compared
// with ==; Equal compares structurally.
type State struct {
	name       resource.Location
	properties []Property
	hash       uint64
	refs       int
}

func newState(v Value) *State {
	s := &State{name: v.Name, properties: make([]Property, 0, len(v.Properties))}
	for k, val := range v.Properties {
		s.properties = append(s.properties, Property{Name: k, Value: val})
	}
	sort.Slice(s.properties, func(i, j int) bool {
		return s.properties[i].Name.Less(s.properties[j].Name)
	})
	s.hash = v.Hash()
	return s
}

// Hash is independent of property iteration order.
func (v Value) Hash() uint64 {
	var props uint64
	for k, val := range v.Properties {
		props ^= xxhash.Sum64String(k.String() + "=" + val.String())
	}
	d := xxhash.New()
	_, _ = d.WriteString(v.Name.String())
	var buf [9]byte
	binary.BigEndian.PutUint64(buf[1:], props)
	_, _ = d.Write(buf[:])
	return d.Sum64()
}

func (s *State) Name() resource.Location { return s.name }
func (s *State) Hash() uint64             { return s.hash }

// Property looks up a property value by name.
func (s *State) Property(name resource.Location) (resource.Location, bool) {
	i := sort.Search(len(s.properties), func(i int) bool {
		return !s.properties[i].Name.Less(name)
	})
	if i < len(s.properties) && s.properties[i].Name == name {
		return s.properties[i].Value, true
	}
	return resource.Location{}, false
}

// Properties returns the properties sorted by name.
func (s *State) Properties() []Property {
	return append([]Property(nil), s.properties...)
}

// Equal reports whether s describes the same block as v.
func (s *State) Equal(v Value) bool {
	if s.name != v.Name || len(s.properties) != len(v.Properties) {
		return false
	}
	for _, p := range s.properties {
		if val, ok := v.Properties[p.Name]; !ok || val != p.Value {
			return false
		}
	}
	return true
}

// Value returns a mutable copy of the state.
func (s *State) Value() Value {
	v := Value{Name: s.name, Properties: make(map[resource.Location]resource.Location, len(s.properties))}
	for _, p := range s.properties {
		v.Properties[p.Name] = p.Value
	}
	return v
}

// String renders the state as name[key=value,...] with the default namespace omitted from keys and values.
func (s *State) String() string {
	if s == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(s.name.String())
	if len(s.properties) > 0 {
		b.WriteByte('[')
		for i, p := range s.properties {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(p.Name.Short())
			b.WriteByte('=')
			b.WriteString(p.Value.Short())
		}
		b.WriteByte(']')
	}
	return b.String()
}
