// Package file stores each namespace as one file in a directory. Writes go
// to a temporary file that is synced and renamed over the target, so a crash
// leaves either the old or the new content. Files carry a checksummed frame;
// a damaged file reads as an error (treated as absent by the engine).
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Hampfh/use-storage/adapter"
	"github.com/Hampfh/use-storage/internal/util"
	"github.com/Hampfh/use-storage/internal/wire"
)

const defaultExt = ".ustg"

type Config struct {
	Dir      string
	Ext      string      // default ".ustg"
	FileMode fs.FileMode // default 0o600
	DirMode  fs.FileMode // default 0o700
}

type Adapter struct {
	dir  string
	ext  string
	mode fs.FileMode
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates the directory if needed.
func New(cfg Config) (*Adapter, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("file adapter: dir is required")
	}
	a := &Adapter{
		dir:  filepath.Clean(cfg.Dir),
		ext:  cfg.Ext,
		mode: cfg.FileMode,
	}
	if a.ext == "" {
		a.ext = defaultExt
	}
	if a.mode == 0 {
		a.mode = 0o600
	}
	dirMode := cfg.DirMode
	if dirMode == 0 {
		dirMode = 0o700
	}
	if err := os.MkdirAll(a.dir, dirMode); err != nil {
		return nil, fmt.Errorf("file adapter: create dir: %w", err)
	}
	return a, nil
}

func (a *Adapter) path(name string) string {
	return filepath.Join(a.dir, util.FileName(name)+a.ext)
}

func (a *Adapter) ReadFile(ctx context.Context, name string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(a.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("file adapter: read %q: %w", name, err)
	}
	payload, err := wire.Decode(b)
	if err != nil {
		return nil, false, fmt.Errorf("file adapter: read %q: %w: %w", name, adapter.ErrCorrupt, err)
	}
	return payload, true, nil
}

func (a *Adapter) WriteFile(ctx context.Context, name string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := adapter.CheckName(name); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(a.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("file adapter: write %q: %w", name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(wire.Encode(value)); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("file adapter: write %q: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("file adapter: sync %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("file adapter: close %q: %w", name, err)
	}
	if err := os.Chmod(tmpName, a.mode); err != nil {
		cleanup()
		return fmt.Errorf("file adapter: chmod %q: %w", name, err)
	}
	if err := os.Rename(tmpName, a.path(name)); err != nil {
		cleanup()
		return fmt.Errorf("file adapter: rename %q: %w", name, err)
	}
	return nil
}

func (a *Adapter) ClearFile(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(a.path(name))
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("file adapter: clear %q: %w", name, err)
}

func (a *Adapter) Close(context.Context) error { return nil }
