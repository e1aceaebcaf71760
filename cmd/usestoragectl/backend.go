package main

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Hampfh/use-storage/adapter"
	"github.com/Hampfh/use-storage/adapter/bigcache"
	"github.com/Hampfh/use-storage/adapter/bolt"
	"github.com/Hampfh/use-storage/adapter/file"
	"github.com/Hampfh/use-storage/adapter/memory"
	"github.com/Hampfh/use-storage/adapter/redis"
	"github.com/Hampfh/use-storage/adapter/ristretto"
	"github.com/Hampfh/use-storage/adapter/sqlite"
	"github.com/Hampfh/use-storage/internal/config"
)

func openAdapter(ctx context.Context, cfg config.Config) (adapter.Adapter, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendFile:
		return file.New(file.Config{Dir: cfg.Dir})
	case config.BackendBolt:
		return bolt.Open(bolt.Config{Path: cfg.BoltPath})
	case config.BackendSQLite:
		return sqlite.Open(cfg.SQLitePath)
	case config.BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		return redis.New(redis.Config{Client: client, Prefix: cfg.KeyPrefix, CloseClient: true})
	case config.BackendBigcache:
		return bigcache.New(ctx, bigcache.Config{Prefix: cfg.KeyPrefix})
	case config.BackendRistretto:
		return ristretto.New(ristretto.Config{
			NumCounters: 10_000,
			MaxCost:     64 << 20,
			BufferItems: 64,
			Prefix:      cfg.KeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
