// Package ristretto keeps namespaces in an in-process Ristretto cache. Writes
// go through the cache's admission policy; a refused write is reported as
// adapter.ErrRejected so the engine rolls the optimistic value back.
package ristretto

import (
	"context"
	"errors"
	"fmt"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/Hampfh/use-storage/adapter"
	"github.com/Hampfh/use-storage/internal/util"
)

type Config struct {
	NumCounters int64
	MaxCost     int64 // bytes
	BufferItems int64
	TTL         time.Duration // 0 = no expiry
	Metrics     bool
	Prefix      string
}

type Adapter struct {
	c      *rc.Cache
	ttl    time.Duration
	prefix string
}

var _ adapter.Adapter = (*Adapter)(nil)

func New(cfg Config) (*Adapter, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto adapter: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto adapter: %w", err)
	}
	return &Adapter{c: c, ttl: cfg.TTL, prefix: cfg.Prefix}, nil
}

func (a *Adapter) key(name string) string { return util.StorageKey(a.prefix, name) }

func (a *Adapter) ReadFile(ctx context.Context, name string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	k := a.key(name)
	v, ok := a.c.Get(k)
	if !ok {
		return nil, false, nil
	}
	b, isBytes := v.([]byte)
	if !isBytes {
		// self-heal: drop unexpected entry shape
		a.c.Del(k)
		return nil, false, nil
	}
	return append([]byte{}, b...), true, nil
}

// WriteFile waits for the set buffer to drain, so a nil error means the value
// is readable.
func (a *Adapter) WriteFile(ctx context.Context, name string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := adapter.CheckName(name); err != nil {
		return err
	}
	k := a.key(name)
	owned := append([]byte{}, value...)
	if !a.c.SetWithTTL(k, owned, int64(len(owned))+1, a.ttl) {
		return fmt.Errorf("ristretto adapter: write %q: %w", name, adapter.ErrRejected)
	}
	a.c.Wait()
	if _, ok := a.c.Get(k); !ok {
		return fmt.Errorf("ristretto adapter: write %q: %w", name, adapter.ErrRejected)
	}
	return nil
}

func (a *Adapter) ClearFile(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.c.Del(a.key(name))
	a.c.Wait()
	return nil
}

func (a *Adapter) Close(context.Context) error {
	a.c.Wait()
	a.c.Close()
	return nil
}

// Metrics exposes cache metrics when Config.Metrics is set.
func (a *Adapter) Metrics() *rc.Metrics { return a.c.Metrics }
