package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	usestorage "github.com/Hampfh/use-storage"
	"github.com/Hampfh/use-storage/adapter"
	"github.com/Hampfh/use-storage/adapter/adaptertest"
	"github.com/Hampfh/use-storage/codec"
	"github.com/Hampfh/use-storage/internal/wire"
	"github.com/Hampfh/use-storage/schema"
)

func TestContract(t *testing.T) {
	adaptertest.Run(t, func(t *testing.T) adapter.Adapter {
		a, err := New(Config{Dir: t.TempDir()})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return a
	})
}

func TestNewRequiresDir(t *testing.T) {
	if _, err := New(Config{Dir: "  "}); err == nil {
		t.Fatalf("expected error for blank dir")
	}
}

func TestFilesAreFramedAndNoTempLeftovers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a, err := New(Config{Dir: dir, Ext: ".bin"})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.WriteFile(ctx, "settings", []byte("payload")); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "settings.bin" {
		t.Fatalf("dir entries = %v", entries)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "settings.bin"))
	if err != nil {
		t.Fatal(err)
	}
	payload, err := wire.Decode(raw)
	if err != nil || string(payload) != "payload" {
		t.Fatalf("on-disk frame: payload=%q err=%v", payload, err)
	}
	info, err := os.Stat(filepath.Join(dir, "settings.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}
}

func TestDamagedFileIsCorrupt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a, err := New(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "settings"+defaultExt), []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, ok, err := a.ReadFile(ctx, "settings")
	if ok || !errors.Is(err, wire.ErrCorrupt) || !errors.Is(err, adapter.ErrCorrupt) {
		t.Fatalf("ReadFile(damaged) ok=%v err=%v", ok, err)
	}
}

func TestEngineClearsDamagedFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a, err := New(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "settings"+defaultExt)
	if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}

	var reported []*usestorage.CorruptError
	e, err := usestorage.New(usestorage.Options{
		Registry:       schema.MustRegistry(schema.New[string]("settings", codec.String{})),
		Adapter:        a,
		ClearOnCorrupt: true,
		OnCorrupt: func(_ context.Context, cerr *usestorage.CorruptError) {
			reported = append(reported, cerr)
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := e.Read(ctx, "settings"); ok {
		t.Fatalf("Read(damaged) = %v, true", v)
	}
	// Close waits for the background clear.
	if err := e.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(reported) != 1 || !errors.Is(reported[0], adapter.ErrCorrupt) {
		t.Fatalf("OnCorrupt calls = %+v", reported)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("damaged file still on disk: %v", err)
	}
}

func TestWriteFailsWhenDirRemoved(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "store")
	a, err := New(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := a.WriteFile(ctx, "settings", []byte("x")); err == nil {
		t.Fatalf("expected write error when dir is gone")
	}
}
