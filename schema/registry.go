package schema

import (
	"errors"
	"fmt"
	"sync"
)

var ErrDuplicateNamespace = errors.New("schema: duplicate namespace")

// Registry maps namespace names to their schema. It is safe for concurrent
// use; registration normally happens once at start-up.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	names   []string
}

// NewRegistry registers entries in order.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if err := r.Register(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
func MustRegistry(entries ...Entry) *Registry {
	r, err := NewRegistry(entries...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Register(e Entry) error {
	if e == nil {
		return errors.New("schema: nil entry")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[e.Name()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateNamespace, e.Name())
	}
	r.entries[e.Name()] = e
	r.names = append(r.names, e.Name())
	return nil
}

func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	return e, ok
}

// Names returns registered namespaces in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	r.mu.RUnlock()
	return out
}
