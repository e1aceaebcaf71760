// Package codec turns namespace values into the bytes handed to a storage
// adapter and back. Every namespace is serialized on its own; codecs never
// add an envelope around the payload.
package codec

// Codec encodes/decodes values V to []byte for storage.
// Decode must fail on input that cannot represent a V; the engine treats a
// decode failure the same way as a failed validation (corrupt file).
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Func adapts a pair of plain functions into a Codec.
type Func[V any] struct {
	EncodeFunc func(V) ([]byte, error)
	DecodeFunc func([]byte) (V, error)
}

func (f Func[V]) Encode(v V) ([]byte, error) { return f.EncodeFunc(v) }
func (f Func[V]) Decode(b []byte) (V, error) { return f.DecodeFunc(b) }
