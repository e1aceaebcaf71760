// Package config reads the usestoragectl settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backends accepted by USESTORAGE_BACKEND.
const (
	BackendMemory    = "memory"
	BackendFile      = "file"
	BackendBolt      = "bolt"
	BackendSQLite    = "sqlite"
	BackendRedis     = "redis"
	BackendBigcache  = "bigcache"
	BackendRistretto = "ristretto"
)

// Codecs accepted by USESTORAGE_CODEC.
const (
	CodecJSON    = "json"
	CodecCBOR    = "cbor"
	CodecMsgpack = "msgpack"
)

// Loggers accepted by USESTORAGE_LOGGER.
const (
	LoggerZap    = "zap"
	LoggerLogrus = "logrus"
	LoggerSlog   = "slog"
)

type Config struct {
	Backend string `env:"USESTORAGE_BACKEND" envDefault:"file"`

	Dir        string `env:"USESTORAGE_DIR" envDefault:".usestorage"`
	BoltPath   string `env:"USESTORAGE_BOLT_PATH" envDefault:"usestorage.db"`
	SQLitePath string `env:"USESTORAGE_SQLITE_PATH" envDefault:"usestorage.sqlite"`

	RedisAddr     string `env:"USESTORAGE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"USESTORAGE_REDIS_PASSWORD"`
	RedisDB       int    `env:"USESTORAGE_REDIS_DB" envDefault:"0"`

	// KeyPrefix isolates namespaces in shared keyspaces (redis, bigcache,
	// ristretto).
	KeyPrefix string `env:"USESTORAGE_KEY_PREFIX" envDefault:"usestorage"`

	// Codec is how documents are encoded at rest.
	Codec string `env:"USESTORAGE_CODEC" envDefault:"json"`

	Logger   string `env:"USESTORAGE_LOGGER" envDefault:"zap"`
	LogLevel string `env:"USESTORAGE_LOG_LEVEL" envDefault:"warn"`

	LoadTimeout   time.Duration `env:"USESTORAGE_LOAD_TIMEOUT" envDefault:"5s"`
	GuardRollback bool          `env:"USESTORAGE_GUARD_ROLLBACK" envDefault:"true"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.Codec = strings.ToLower(strings.TrimSpace(cfg.Codec))
	cfg.Logger = strings.ToLower(strings.TrimSpace(cfg.Logger))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendBigcache, BackendRistretto:
	case BackendFile:
		if strings.TrimSpace(c.Dir) == "" {
			return fmt.Errorf("config: USESTORAGE_DIR is required for the file backend")
		}
	case BackendBolt:
		if strings.TrimSpace(c.BoltPath) == "" {
			return fmt.Errorf("config: USESTORAGE_BOLT_PATH is required for the bolt backend")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("config: USESTORAGE_SQLITE_PATH is required for the sqlite backend")
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("config: USESTORAGE_REDIS_ADDR is required for the redis backend")
		}
		if c.RedisDB < 0 {
			return fmt.Errorf("config: USESTORAGE_REDIS_DB must not be negative")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	switch c.Codec {
	case CodecJSON, CodecCBOR, CodecMsgpack:
	default:
		return fmt.Errorf("config: unknown codec %q", c.Codec)
	}
	switch c.Logger {
	case LoggerZap, LoggerLogrus, LoggerSlog:
	default:
		return fmt.Errorf("config: unknown logger %q", c.Logger)
	}
	if c.LoadTimeout < 0 {
		return fmt.Errorf("config: USESTORAGE_LOAD_TIMEOUT must not be negative")
	}
	return nil
}
