package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

// Protobuf persists a generated message type. ctor must return a fresh,
// non-nil message (e.g. func() *settingspb.Theme { return &settingspb.Theme{} }).
type Protobuf[T proto.Message] struct {
	new func() T
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	if c.new == nil {
		var zero T
		return zero, errors.New("protobuf codec: missing constructor")
	}
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}
