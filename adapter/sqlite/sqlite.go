// Package sqlite stores namespaces as rows of a single SQLite table using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Hampfh/use-storage/adapter"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS files (
	name       TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

type Adapter struct {
	db *sql.DB
}

var (
	_ adapter.Adapter = (*Adapter)(nil)
	_ adapter.Lister  = (*Adapter)(nil)
)

// Open opens a SQLite database at path and ensures the files table exists.
func Open(path string) (*Adapter, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite adapter: path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite adapter: open: %w", err)
	}
	return OpenDB(db)
}

// OpenDB wraps an already opened database. Close closes db.
func OpenDB(db *sql.DB) (*Adapter, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite adapter: db is required")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite adapter: ping: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite adapter: create table: %w", err)
	}
	return &Adapter{db: db}, nil
}

func (a *Adapter) ReadFile(ctx context.Context, name string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var value []byte
	err := a.db.QueryRowContext(ctx, `SELECT value FROM files WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite adapter: read %q: %w", name, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
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
	_, err := a.db.ExecContext(ctx, `INSERT INTO files (name, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, value, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlite adapter: write %q: %w", name, err)
	}
	return nil
}

func (a *Adapter) ClearFile(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := a.db.ExecContext(ctx, `DELETE FROM files WHERE name = ?`, name); err != nil {
		return fmt.Errorf("sqlite adapter: clear %q: %w", name, err)
	}
	return nil
}

// Names lists stored namespaces in name order.
func (a *Adapter) Names(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := a.db.QueryContext(ctx, `SELECT name FROM files ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite adapter: list: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("sqlite adapter: list: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (a *Adapter) Close(context.Context) error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}
