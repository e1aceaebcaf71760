package usestorage

import (
	"context"
	"time"

	"github.com/Hampfh/use-storage/adapter"
	"github.com/Hampfh/use-storage/schema"
	"github.com/Hampfh/use-storage/store"
)

// Bootstrap selects how the initial load is scoped.
type Bootstrap uint8

const (
	// BootstrapPerNamespace loads each namespace the first time it is asked for.
	BootstrapPerNamespace Bootstrap = iota
	// BootstrapGlobal loads every registered namespace the first time any
	// namespace is asked for.
	BootstrapGlobal
)

func (b Bootstrap) String() string {
	switch b {
	case BootstrapPerNamespace:
		return "per_namespace"
	case BootstrapGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// CorruptFunc is called when a stored payload fails to decode or validate.
type CorruptFunc func(ctx context.Context, err *CorruptError)

// Options configure an Engine.
// Only Registry and Adapter are required; others have sensible defaults.
type Options struct {
	// Required
	Registry *schema.Registry
	Adapter  adapter.Adapter

	Store       store.Store   // nil => store.NewMemory()
	Logger      Logger        // if nil, NopLogger is used
	Hooks       Hooks         // if nil, NopHooks is used
	Bootstrap   Bootstrap     // default BootstrapPerNamespace
	LoadTimeout time.Duration // bounds each initial load; 0 => none

	// Defaults for reads done by the initial load and Refresh. Read accepts
	// per-call overrides.
	ClearOnCorrupt bool
	OnCorrupt      CorruptFunc

	// GuardRollback makes a failed write or clear roll back only if no newer
	// commit landed on the namespace in the meantime. Off by default: the
	// rollback then restores the captured value unconditionally.
	GuardRollback bool
}

// ReadOption tunes a single Read.
type ReadOption func(*readOptions)

type readOptions struct {
	clearOnCorrupt bool
	onCorrupt      CorruptFunc
}

// WithClearOnCorrupt removes a corrupt payload from the backend in the
// background. Close waits for pending clears.
func WithClearOnCorrupt() ReadOption {
	return func(o *readOptions) { o.clearOnCorrupt = true }
}

// WithOnCorrupt sets the callback invoked with a corrupt payload.
func WithOnCorrupt(fn CorruptFunc) ReadOption {
	return func(o *readOptions) { o.onCorrupt = fn }
}

func New(opts Options) (*Engine, error) {
	return newEngine(opts)
}
