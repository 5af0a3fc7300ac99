package document

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/Tnze/go-mc/nbt"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

var ErrUnknownCompression = errors.New("document: unknown compression")
var ErrMalformedDocument = errors.New("document: malformed document")

// Compression is the one-byte scheme tag that precedes a compressed document.
type Compression byte

const (
	CompressionGzip Compression = 1
	CompressionZlib Compression = 2
	CompressionNone Compression = 3
)

func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionZlib:
		return "zlib"
	case CompressionNone:
		return "none"
	default:
		return fmt.Sprintf("unknown(%d)", byte(c))
	}
}

// Decompress wraps r in a reader for the given scheme.
func Decompress(c Compression, r io.Reader) (io.ReadCloser, error) {
	switch c {
	case CompressionGzip:
		return gzip.NewReader(r)
	case CompressionZlib:
		return zlib.NewReader(r)
	case CompressionNone:
		return io.NopCloser(r), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, byte(c))
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Compress wraps w in a writer for the given scheme. Close must be called to flush the stream; it does
// not close w.
func Compress(c Compression, w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	case CompressionZlib:
		return zlib.NewWriter(w), nil
	case CompressionNone:
		return nopWriteCloser{w}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, byte(c))
	}
}

// Decode decompresses r and parses a single named NBT compound from it.
func Decode(c Compression, r io.Reader) (Compound, error) {
	stream, err := Decompress(c, r)
	if err != nil {
		if errors.Is(err, ErrUnknownCompression) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s stream: %v", ErrMalformedDocument, c, err)
	}
	defer stream.Close()
	return Parse(stream)
}

// Parse reads an uncompressed NBT document whose root is a compound.
func Parse(r io.Reader) (Compound, error) {
	var root map[string]any
	if _, err := nbt.NewDecoder(bufio.NewReader(r)).Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	node, err := convert(reflect.ValueOf(root))
	if err != nil {
		return nil, err
	}
	compound, ok := node.(Compound)
	if !ok {
		return nil, fmt.Errorf("%w: root is a %s", ErrMalformedDocument, node.Kind())
	}
	return compound, nil
}

// convert turns the generic values produced by the nbt decoder into tree nodes.
func convert(v reflect.Value) (Node, error) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("%w: nil value", ErrMalformedDocument)
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Int8:
		return Byte(v.Int()), nil
	case reflect.Uint8:
		return Byte(int8(v.Uint())), nil
	case reflect.Int16:
		return Short(v.Int()), nil
	case reflect.Int32:
		return Int(v.Int()), nil
	case reflect.Int64:
		return Long(v.Int()), nil
	case reflect.Float32:
		return Float(v.Float()), nil
	case reflect.Float64:
		return Double(v.Float()), nil
	case reflect.String:
		return String(v.String()), nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: compound keyed by %s", ErrMalformedDocument, v.Type().Key())
		}
		compound := make(Compound, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			child, err := convert(iter.Value())
			if err != nil {
				return nil, err
			}
			compound[iter.Key().String()] = child
		}
		return compound, nil
	case reflect.Slice, reflect.Array:
		return convertSlice(v)
	}
	return nil, fmt.Errorf("%w: unsupported value %s", ErrMalformedDocument, v.Type())
}

func convertSlice(v reflect.Value) (Node, error) {
	switch v.Type().Elem().Kind() {
	case reflect.Uint8, reflect.Int8:
		out := make(ByteArray, v.Len())
		for i := range out {
			out[i] = byte(v.Index(i).Convert(reflect.TypeOf(int64(0))).Int())
		}
		return out, nil
	case reflect.Int32:
		out := make(IntArray, v.Len())
		for i := range out {
			out[i] = int32(v.Index(i).Int())
		}
		return out, nil
	case reflect.Int64:
		out := make(LongArray, v.Len())
		for i := range out {
			out[i] = v.Index(i).Int()
		}
		return out, nil
	}

	list := make(List, v.Len())
	for i := range list {
		child, err := convert(v.Index(i))
		if err != nil {
			return nil, err
		}
		list[i] = child
	}
	return list, nil
}
