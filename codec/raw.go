package codec

import (
	"fmt"
	"unicode/utf8"
)

// Bytes is an identity codec for []byte namespaces (opaque blobs).
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return b, nil }

// String stores a Go string as its raw bytes. Decode rejects invalid UTF-8
// so binary garbage in a text namespace surfaces as a corrupt file.
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", fmt.Errorf("string codec: invalid utf-8")
	}
	return string(b), nil
}
