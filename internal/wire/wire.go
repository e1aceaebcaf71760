// Package wire frames files written by the file adapter so that a torn or
// foreign file is detected on read instead of being handed to a codec.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/cespare/xxhash/v2"
)

const (
	version byte = 1
	hdrLen       = 4 + 1 + 4 + 8
)

var (
	ErrCorrupt = errors.New("usestorage: corrupt file frame")
	magic4     = [...]byte{'U', 'S', 'T', 'G'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Frame: magic(4) | ver(1) | plen(u32 be) | xxhash64(payload)(u64 be) | payload(plen)
func Encode(payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	binary.BigEndian.PutUint64(u8[:], xxhash.Sum64(payload))
	buf.Write(u8[:])

	buf.Write(payload)
	return buf.Bytes()
}

// Decode validates the frame and returns the payload. The payload aliases b.
// Trailing bytes, a short payload or a checksum mismatch are ErrCorrupt.
func Decode(b []byte) ([]byte, error) {
	if len(b) < hdrLen || !hasMagic(b) || b[4] != version {
		return nil, ErrCorrupt
	}
	off := 5

	plen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4

	sum := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	if plen != len(b)-off {
		return nil, ErrCorrupt
	}
	payload := b[off:]
	if xxhash.Sum64(payload) != sum {
		return nil, ErrCorrupt
	}
	return payload, nil
}
