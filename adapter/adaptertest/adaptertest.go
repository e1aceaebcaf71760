// Package adaptertest holds the behaviour every adapter.Adapter must share.
// Backend packages call Run from their own tests.
package adaptertest

import (
	"bytes"
	"context"
	"testing"

	"github.com/Hampfh/use-storage/adapter"
)

// Factory returns a fresh, empty adapter. Run closes it.
type Factory func(t *testing.T) adapter.Adapter

// Run exercises the adapter contract against adapters built by newAdapter.
func Run(t *testing.T, newAdapter Factory) {
	t.Helper()

	t.Run("read_missing", func(t *testing.T) {
		ctx := context.Background()
		a := open(t, newAdapter)
		b, ok, err := a.ReadFile(ctx, "missing")
		if err != nil || ok || b != nil {
			t.Fatalf("ReadFile(missing) = %q, %v, %v; want nil, false, nil", b, ok, err)
		}
	})

	t.Run("write_read", func(t *testing.T) {
		ctx := context.Background()
		a := open(t, newAdapter)
		want := []byte{0x00, 'u', 's', 0xff, 0x00, '\n'}
		if err := a.WriteFile(ctx, "settings", want); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		got, ok, err := a.ReadFile(ctx, "settings")
		if err != nil || !ok || !bytes.Equal(got, want) {
			t.Fatalf("ReadFile = %x, %v, %v; want %x", got, ok, err, want)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		ctx := context.Background()
		a := open(t, newAdapter)
		mustWrite(t, a, "settings", []byte("first"))
		mustWrite(t, a, "settings", []byte("second"))
		got, ok, err := a.ReadFile(ctx, "settings")
		if err != nil || !ok || string(got) != "second" {
			t.Fatalf("ReadFile = %q, %v, %v; want second", got, ok, err)
		}
	})

	t.Run("names_isolated", func(t *testing.T) {
		ctx := context.Background()
		a := open(t, newAdapter)
		mustWrite(t, a, "a", []byte("A"))
		mustWrite(t, a, "a/b", []byte("AB"))
		mustWrite(t, a, "user settings", []byte("US"))
		for name, want := range map[string]string{"a": "A", "a/b": "AB", "user settings": "US"} {
			got, ok, err := a.ReadFile(ctx, name)
			if err != nil || !ok || string(got) != want {
				t.Fatalf("ReadFile(%q) = %q, %v, %v; want %q", name, got, ok, err, want)
			}
		}
	})

	t.Run("clear", func(t *testing.T) {
		ctx := context.Background()
		a := open(t, newAdapter)
		mustWrite(t, a, "settings", []byte("x"))
		if err := a.ClearFile(ctx, "settings"); err != nil {
			t.Fatalf("ClearFile: %v", err)
		}
		if _, ok, err := a.ReadFile(ctx, "settings"); ok || err != nil {
			t.Fatalf("ReadFile after clear: ok=%v err=%v", ok, err)
		}
		if err := a.ClearFile(ctx, "settings"); err != nil {
			t.Fatalf("second ClearFile: %v", err)
		}
		if err := a.ClearFile(ctx, "never-written"); err != nil {
			t.Fatalf("ClearFile(missing): %v", err)
		}
	})

	t.Run("returned_bytes_are_owned", func(t *testing.T) {
		ctx := context.Background()
		a := open(t, newAdapter)
		in := []byte("value")
		mustWrite(t, a, "k", in)
		in[0] = 'X'
		got, _, _ := a.ReadFile(ctx, "k")
		if string(got) != "value" {
			t.Fatalf("adapter kept caller's slice: %q", got)
		}
		got[0] = 'Y'
		again, _, _ := a.ReadFile(ctx, "k")
		if string(again) != "value" {
			t.Fatalf("adapter returned its internal slice: %q", again)
		}
	})

	t.Run("empty_name", func(t *testing.T) {
		ctx := context.Background()
		a := open(t, newAdapter)
		if err := a.WriteFile(ctx, "", []byte("x")); err == nil {
			t.Fatalf("WriteFile with empty name should fail")
		}
	})
}

func open(t *testing.T, newAdapter Factory) adapter.Adapter {
	t.Helper()
	a := newAdapter(t)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func mustWrite(t *testing.T, a adapter.Adapter, name string, v []byte) {
	t.Helper()
	if err := a.WriteFile(context.Background(), name, v); err != nil {
		t.Fatalf("WriteFile(%q): %v", name, err)
	}
}
