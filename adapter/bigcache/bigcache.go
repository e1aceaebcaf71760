// Package bigcache keeps namespaces in an in-process BigCache. Entries
// expire after LifeWindow, so it suits session-scoped state.
package bigcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/Hampfh/use-storage/adapter"
	"github.com/Hampfh/use-storage/internal/util"
)

type Config struct {
	LifeWindow         time.Duration // default 24h
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
	Prefix             string
}

type Adapter struct {
	c      *bc.BigCache
	prefix string
}

var _ adapter.Adapter = (*Adapter)(nil)

func New(ctx context.Context, cfg Config) (*Adapter, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = 24 * time.Hour
	}
	conf := bc.DefaultConfig(life)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	conf.Verbose = false
	c, err := bc.New(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("bigcache adapter: %w", err)
	}
	return &Adapter{c: c, prefix: cfg.Prefix}, nil
}

func (a *Adapter) key(name string) string { return util.StorageKey(a.prefix, name) }

func (a *Adapter) ReadFile(ctx context.Context, name string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	b, err := a.c.Get(a.key(name))
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("bigcache adapter: read %q: %w", name, err)
	}
	return b, true, nil
}

func (a *Adapter) WriteFile(ctx context.Context, name string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := adapter.CheckName(name); err != nil {
		return err
	}
	if err := a.c.Set(a.key(name), value); err != nil {
		return fmt.Errorf("bigcache adapter: write %q: %w: %v", name, adapter.ErrRejected, err)
	}
	return nil
}

func (a *Adapter) ClearFile(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := a.c.Delete(a.key(name))
	if err == nil || errors.Is(err, bc.ErrEntryNotFound) {
		return nil
	}
	return fmt.Errorf("bigcache adapter: clear %q: %w", name, err)
}

func (a *Adapter) Close(context.Context) error {
	return a.c.Close()
}
