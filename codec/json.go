package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSON serializes values with encoding/json. The zero value is ready to use.
//
// Indent, when set, pretty-prints files (handy for the file adapter where
// people open settings by hand). Strict rejects unknown object fields on
// Decode, so a file written by a newer schema reads back as corrupt instead
// of silently dropping data.
type JSON[V any] struct {
	Indent string
	Strict bool
}

var _ Codec[struct{}] = JSON[struct{}]{}

func (c JSON[V]) Encode(v V) ([]byte, error) {
	if c.Indent != "" {
		return json.MarshalIndent(v, "", c.Indent)
	}
	return json.Marshal(v)
}

func (c JSON[V]) Decode(b []byte) (V, error) {
	var v V
	dec := json.NewDecoder(bytes.NewReader(b))
	if c.Strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	if dec.More() {
		var zero V
		return zero, fmt.Errorf("json: trailing data after value")
	}
	return v, nil
}
