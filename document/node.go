// Package document decodes compressed NBT documents into a typed tree.
package document

import (
	"sort"
	"strconv"
)

// Kind identifies the NBT tag type of a node.
type Kind byte

const (
	KindByte      Kind = 1
	KindShort     Kind = 2
	KindInt       Kind = 3
	KindLong      Kind = 4
	KindFloat     Kind = 5
	KindDouble    Kind = 6
	KindByteArray Kind = 7
	KindString    Kind = 8
	KindList      Kind = 9
	KindCompound  Kind = 10
	KindIntArray  Kind = 11
	KindLongArray Kind = 12
)

func (k Kind) String() string {
	switch k {
	case KindByte:
		return "byte"
	case KindShort:
		return "short"
	case KindInt:
		return "int"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindByteArray:
		return "byte[]"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindCompound:
		return "compound"
	case KindIntArray:
		return "int[]"
	case KindLongArray:
		return "long[]"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// Node is any value of the tree.
type Node interface {
	Kind() Kind
}

type (
	Byte      int8
	Short     int16
	Int       int32
	Long      int64
	Float     float32
	Double    float64
	String    string
	ByteArray []byte
	IntArray  []int32
	LongArray []int64
	List      []Node
	Compound  map[string]Node
)

func (Byte) Kind() Kind      { return KindByte }
func (Short) Kind() Kind     { return KindShort }
func (Int) Kind() Kind       { return KindInt }
func (Long) Kind() Kind      { return KindLong }
func (Float) Kind() Kind     { return KindFloat }
func (Double) Kind() Kind    { return KindDouble }
func (String) Kind() Kind    { return KindString }
func (ByteArray) Kind() Kind { return KindByteArray }
func (IntArray) Kind() Kind  { return KindIntArray }
func (LongArray) Kind() Kind { return KindLongArray }
func (List) Kind() Kind      { return KindList }
func (Compound) Kind() Kind  { return KindCompound }

// Compound returns the nested compound stored under key.
func (c Compound) Compound(key string) (Compound, bool) {
	v, ok := c[key].(Compound)
	return v, ok
}

// List returns the list stored under key.
func (c Compound) List(key string) (List, bool) {
	v, ok := c[key].(List)
	return v, ok
}

// StringValue returns the string stored under key.
func (c Compound) StringValue(key string) (string, bool) {
	v, ok := c[key].(String)
	return string(v), ok
}

// Int returns the signed integer stored under key, for any integer tag.
func (c Compound) Int(key string) (int64, bool) {
	switch v := c[key].(type) {
	case Byte:
		return int64(v), true
	case Short:
		return int64(v), true
	case Int:
		return int64(v), true
	case Long:
		return int64(v), true
	}
	return 0, false
}

// Keys returns the compound's keys in sorted order.
func (c Compound) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AsUint64 widens an integer scalar to 64 bits, reinterpreting it as unsigned at its own width.
func AsUint64(n Node) (uint64, bool) {
	switch v := n.(type) {
	case Byte:
		return uint64(uint8(v)), true
	case Short:
		return uint64(uint16(v)), true
	case Int:
		return uint64(uint32(v)), true
	case Long:
		return uint64(v), true
	}
	return 0, false
}

// Stringify renders a string or numeric scalar. Composite nodes are rejected.
func Stringify(n Node) (string, bool) {
	switch v := n.(type) {
	case String:
		return string(v), true
	case Byte:
		return strconv.FormatInt(int64(v), 10), true
	case Short:
		return strconv.FormatInt(int64(v), 10), true
	case Int:
		return strconv.FormatInt(int64(v), 10), true
	case Long:
		return strconv.FormatInt(int64(v), 10), true
	case Float:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), true
	case Double:
		return strconv.FormatFloat(float64(v), 'g', -1, 64), true
	}
	return "", false
}
