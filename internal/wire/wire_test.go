package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	for _, payload := range [][]byte{nil, []byte("hello"), {0, 1, 2, 3, 0xff}} {
		enc := Encode(payload)
		got, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode(%x): %v", payload, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("payload mismatch: got %x want %x", got, payload)
		}
	}
}

func TestRejectsTrailingBytes(t *testing.T) {
	enc := append(Encode([]byte("x")), 0xDE, 0xAD)
	if _, err := Decode(enc); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt on trailing bytes, got %v", err)
	}
}

func TestRejectsTruncated(t *testing.T) {
	enc := Encode([]byte("payload"))
	for n := 0; n < len(enc); n++ {
		if _, err := Decode(enc[:n]); err == nil {
			t.Fatalf("truncated frame of %d bytes decoded", n)
		}
	}
}

func TestCorruptHeadersAndChecksum(t *testing.T) {
	enc := Encode([]byte("abc"))

	badMagic := append([]byte(nil), enc...)
	badMagic[0] = 'X'
	if _, err := Decode(badMagic); err == nil {
		t.Fatalf("expected error on bad magic")
	}

	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, err := Decode(badVer); err == nil {
		t.Fatalf("expected error on bad version")
	}

	flipped := append([]byte(nil), enc...)
	flipped[len(flipped)-1] ^= 0x01
	if _, err := Decode(flipped); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected checksum failure, got %v", err)
	}
}

func TestForeignFileRejected(t *testing.T) {
	if _, err := Decode([]byte(`{"theme":"dark","volume":10}`)); err == nil {
		t.Fatalf("plain JSON must not decode as a frame")
	}
}
