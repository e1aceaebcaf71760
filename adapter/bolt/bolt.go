// Package bolt stores namespaces in a single bbolt database file, one key
// per namespace in one bucket.
package bolt

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Hampfh/use-storage/adapter"
)

const defaultBucket = "files"

type Config struct {
	Path    string
	Bucket  string        // default "files"
	Timeout time.Duration // file lock wait; default 1s
}

type Adapter struct {
	db     *bbolt.DB
	bucket []byte
}

var (
	_ adapter.Adapter = (*Adapter)(nil)
	_ adapter.Lister  = (*Adapter)(nil)
)

// Open opens (or creates) the database and its bucket.
func Open(cfg Config) (*Adapter, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("bolt adapter: path is required")
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = defaultBucket
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bbolt.Open(filepath.Clean(cfg.Path), 0o600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("bolt adapter: open: %w", err)
	}
	a := &Adapter{db: db, bucket: []byte(bucket)}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(a.bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt adapter: ensure bucket: %w", err)
	}
	return a, nil
}

func (a *Adapter) ReadFile(ctx context.Context, name string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var out []byte
	err := a.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(a.bucket)
		if b == nil {
			return fmt.Errorf("bucket %q missing", a.bucket)
		}
		if v := b.Get([]byte(name)); v != nil {
			// v is only valid inside the transaction
			out = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("bolt adapter: read %q: %w", name, err)
	}
	if out == nil {
		return nil, false, nil
	}
	return out, true, nil
}

func (a *Adapter) WriteFile(ctx context.Context, name string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := adapter.CheckName(name); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	err := a.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(a.bucket).Put([]byte(name), value)
	})
	if err != nil {
		return fmt.Errorf("bolt adapter: write %q: %w", name, err)
	}
	return nil
}

func (a *Adapter) ClearFile(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := a.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(a.bucket).Delete([]byte(name))
	})
	if err != nil {
		return fmt.Errorf("bolt adapter: clear %q: %w", name, err)
	}
	return nil
}

// Names lists stored namespaces; bbolt keeps keys in byte order.
func (a *Adapter) Names(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	err := a.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(a.bucket).ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("bolt adapter: list: %w", err)
	}
	return out, nil
}

// Close closes the database. Safe to call more than once.
func (a *Adapter) Close(context.Context) error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}
