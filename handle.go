package usestorage

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/Hampfh/use-storage/schema"
	"github.com/Hampfh/use-storage/store"
)

// Handle is one consumer's typed view of a namespace. It subscribes to the
// engine's store on Open and must be closed to unsubscribe.
type Handle[V any] struct {
	eng    *Engine
	schema *schema.Schema[V]
	name   string

	loaded <-chan struct{}
	unsub  func()
	seen   atomic.Uint64 // last version signalled

	mu      sync.Mutex
	changes chan struct{}
	closed  bool
	stop    chan struct{}
}

// Open subscribes to s's namespace and triggers its initial load. s must be
// the schema registered under its name (same value type).
func Open[V any](e *Engine, s *schema.Schema[V]) (*Handle[V], error) {
	if e == nil || s == nil {
		return nil, fmt.Errorf("usestorage: open: engine and schema are required")
	}
	entry, ok := e.registry.Lookup(s.Name())
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, s.Name())
	}
	registered, ok := entry.(*schema.Schema[V])
	if !ok {
		return nil, fmt.Errorf("usestorage: open %q: registered schema has a different value type", s.Name())
	}

	h := &Handle[V]{
		eng:     e,
		schema:  registered,
		name:    registered.Name(),
		changes: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	h.seen.Store(e.store.Get(h.name).Version)
	h.unsub = e.store.Subscribe(h.onChange)
	h.loaded = e.Loaded(h.name)
	go h.watchLoad()
	return h, nil
}

func (h *Handle[V]) Name() string { return h.name }

// Value returns the cached value, else the schema default. ok is false when
// neither exists. A map or slice value is copied one level deep; anything it
// points to is still shared with the cache and must not be mutated.
func (h *Handle[V]) Value() (V, bool) {
	if ent := h.eng.store.Get(h.name); ent.Present {
		if v, ok := ent.Value.(V); ok {
			return shallowCopy(v), true
		}
	}
	v, ok := h.schema.Default()
	return shallowCopy(v), ok
}

func shallowCopy[V any](v V) V {
	rv := reflect.ValueOf(&v).Elem()
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		return out.Interface().(V)
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(out, rv)
		return out.Interface().(V)
	default:
		return v
	}
}

// Initialized reports whether the initial load has settled.
func (h *Handle[V]) Initialized() bool {
	select {
	case <-h.loaded:
		return true
	default:
		return false
	}
}

// Wait blocks until the initial load has settled or ctx is done.
func (h *Handle[V]) Wait(ctx context.Context) error {
	select {
	case <-h.loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Valid is a pure schema check.
func (h *Handle[V]) Valid(candidate any) bool {
	_, err := h.schema.Check(candidate)
	return err == nil
}

// Write persists v. Validation and backend failures both report false.
func (h *Handle[V]) Write(ctx context.Context, v V) bool {
	ok, err := h.eng.Write(ctx, h.name, v)
	if err != nil {
		h.eng.log.Debug("handle write refused", Fields{"ns": h.name, "err": err})
		return false
	}
	return ok
}

// Merge replaces the top-level fields in fields on the current value (or the
// default, or the zero value) and writes the result. The merge is shallow
// and a concurrent writer may interleave between the read and the write.
func (h *Handle[V]) Merge(ctx context.Context, fields map[string]any) bool {
	base, _ := h.Value()
	next, err := schema.Merge(base, fields)
	if err != nil {
		h.eng.log.Debug("handle merge refused", Fields{"ns": h.name, "err": err})
		return false
	}
	return h.Write(ctx, next)
}

// Clear resets the namespace. Failures are rolled back and logged by the
// engine.
func (h *Handle[V]) Clear(ctx context.Context) {
	h.eng.Clear(ctx, h.name)
}

// Refresh re-reads the namespace from the backend and overwrites the cache.
func (h *Handle[V]) Refresh(ctx context.Context) (V, bool) {
	v, ok := h.eng.Refresh(ctx, h.name)
	if !ok {
		var zero V
		return zero, false
	}
	typed, ok := v.(V)
	return typed, ok
}

// Changes signals after each change to this namespace and once when the
// initial load settles. Signals coalesce; read Value for the current state.
// The channel is closed by Close.
func (h *Handle[V]) Changes() <-chan struct{} { return h.changes }

// Close unsubscribes and stops signalling. Safe to call more than once.
func (h *Handle[V]) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.stop)
	select {
	case <-h.changes:
	default:
	}
	close(h.changes)
	h.mu.Unlock()
	h.unsub()
}

func (h *Handle[V]) onChange(c store.Change) {
	if c.Namespace != h.name {
		return
	}
	for {
		last := h.seen.Load()
		if c.Entry.Version <= last {
			return
		}
		if h.seen.CompareAndSwap(last, c.Entry.Version) {
			break
		}
	}
	h.signal()
}

func (h *Handle[V]) signal() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.changes <- struct{}{}:
	default:
	}
}

func (h *Handle[V]) watchLoad() {
	select {
	case <-h.loaded:
		h.signal()
	case <-h.stop:
	}
}
