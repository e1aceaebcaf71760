// Package redis persists namespaces as plain string keys in Redis. Use a
// key prefix when the server is shared with other data.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Hampfh/use-storage/adapter"
	"github.com/Hampfh/use-storage/internal/util"
)

var ErrNilClient = errors.New("redis adapter: nil client")

type Config struct {
	Client      goredis.UniversalClient
	Prefix      string        // keys become "<prefix>:<name>"
	TTL         time.Duration // 0 = no expiry
	CloseClient bool          // set true only if this adapter exclusively owns the client
}

type Adapter struct {
	rdb         goredis.UniversalClient
	prefix      string
	ttl         time.Duration
	closeClient bool
}

var (
	_ adapter.Adapter = (*Adapter)(nil)
	_ adapter.Lister  = (*Adapter)(nil)
)

func New(cfg Config) (*Adapter, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	ttl := cfg.TTL
	if ttl < 0 {
		ttl = 0
	}
	return &Adapter{
		rdb:         cfg.Client,
		prefix:      cfg.Prefix,
		ttl:         ttl,
		closeClient: cfg.CloseClient,
	}, nil
}

func (a *Adapter) key(name string) string { return util.StorageKey(a.prefix, name) }

func (a *Adapter) ReadFile(ctx context.Context, name string) ([]byte, bool, error) {
	b, err := a.rdb.Get(ctx, a.key(name)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis adapter: read %q: %w", name, err)
	}
	return b, true, nil
}

func (a *Adapter) WriteFile(ctx context.Context, name string, value []byte) error {
	if err := adapter.CheckName(name); err != nil {
		return err
	}
	if err := a.rdb.Set(ctx, a.key(name), value, a.ttl).Err(); err != nil {
		return fmt.Errorf("redis adapter: write %q: %w", name, err)
	}
	return nil
}

func (a *Adapter) ClearFile(ctx context.Context, name string) error {
	if err := a.rdb.Del(ctx, a.key(name)).Err(); err != nil {
		return fmt.Errorf("redis adapter: clear %q: %w", name, err)
	}
	return nil
}

// Names scans the keyspace under the prefix. Without a prefix every key on
// the server is listed.
func (a *Adapter) Names(ctx context.Context) ([]string, error) {
	match := "*"
	if a.prefix != "" {
		match = a.prefix + ":*"
	}
	var out []string
	iter := a.rdb.Scan(ctx, 0, match, 100).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), util.StorageKey(a.prefix, "")))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis adapter: list: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

// Close releases the client only when this adapter owns it. Repeated calls
// are no-ops.
func (a *Adapter) Close(context.Context) error {
	if a.closeClient {
		if err := a.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
