// Package adapter defines the storage backend contract the engine persists
// namespaces through.
//
// Each namespace ("file") is one independent byte payload stored under its
// name. Adapters must be byte-for-byte transparent: ReadFile returns exactly
// the bytes last passed to WriteFile for that name. A backend that frames or
// compresses internally must fully reverse it on read.
package adapter

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned by operations on a closed adapter.
	ErrClosed = errors.New("adapter: closed")
	// ErrRejected is returned when a backend refused a write (eviction
	// pressure, admission policy, size cap).
	ErrRejected = errors.New("adapter: write rejected")
	// ErrEmptyName is returned for an empty namespace name.
	ErrEmptyName = errors.New("adapter: empty file name")
	// ErrCorrupt is wrapped by ReadFile when the backend's own framing of a
	// stored value is damaged. The engine reports it as corrupt data rather
	// than as a backend failure.
	ErrCorrupt = errors.New("adapter: corrupt stored value")
)

// Adapter is an asynchronous key-value backend. Implementations must be safe
// for concurrent use.
type Adapter interface {
	// ReadFile returns (value, true, nil) on hit and (nil, false, nil) when
	// nothing is stored. I/O failures return (nil, false, err); a damaged
	// stored value returns an error wrapping ErrCorrupt.
	ReadFile(ctx context.Context, name string) ([]byte, bool, error)

	// WriteFile replaces the stored value. A non-nil error means the value
	// may not be durable and the caller rolls back.
	WriteFile(ctx context.Context, name string, value []byte) error

	// ClearFile removes the stored value. Clearing a missing file succeeds.
	ClearFile(ctx context.Context, name string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// Lister is implemented by backends that can enumerate stored files.
type Lister interface {
	// Names returns stored file names in ascending order.
	Names(ctx context.Context) ([]string, error)
}

// CheckName validates a file name before it reaches a backend.
func CheckName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	return nil
}
