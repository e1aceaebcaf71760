// Package store is the shared, reactive cache every namespace handle
// observes. It holds the current value of each namespace and tells every
// subscriber about every mutation; subscribers decide whether a change is
// theirs.
package store

import (
	"sync"
	"sync/atomic"
)

// Entry is the cached state of one namespace.
// Version is unique per mutation and increases monotonically store-wide;
// the zero Entry (Present=false, Version=0) is a namespace never touched.
type Entry struct {
	Value   any
	Present bool
	Version uint64
}

type ActionType uint8

const (
	// Set stores Value as present.
	Set ActionType = iota + 1
	// Reset marks the namespace absent.
	Reset
)

func (t ActionType) String() string {
	switch t {
	case Set:
		return "set"
	case Reset:
		return "reset"
	default:
		return "unknown"
	}
}

// Action is a mutation request. With Conditional set it is a
// compare-and-swap: it applies only while the entry still has version
// IfVersion (0 for a namespace never mutated).
type Action struct {
	Type        ActionType
	Namespace   string
	Value       any
	Conditional bool
	IfVersion   uint64
}

// Change is delivered to listeners after a mutation.
type Change struct {
	Namespace string
	Entry     Entry
}

type Listener func(Change)

// Store is the contract the engine needs from a reactive container.
type Store interface {
	// State returns a copy of every entry (getState).
	State() map[string]Entry
	Get(namespace string) Entry
	// Dispatch applies a; ok is false if a compare-and-swap did not match or
	// the action type is unknown. The returned Entry is the current one.
	Dispatch(a Action) (Entry, bool)
	Subscribe(l Listener) (unsubscribe func())
}

type subscription struct {
	fn     Listener
	active atomic.Bool
}

// Memory is the in-process Store. Each Dispatch is atomic; listeners run on
// the dispatching goroutine after the lock is released, so they may call
// back into the store.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	version uint64

	subMu  sync.Mutex
	subs   map[uint64]*subscription
	nextID uint64
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]Entry),
		subs:    make(map[uint64]*subscription),
	}
}

func (m *Memory) State() map[string]Entry {
	m.mu.RLock()
	out := make(map[string]Entry, len(m.entries))
	for k, e := range m.entries {
		out[k] = e
	}
	m.mu.RUnlock()
	return out
}

func (m *Memory) Get(namespace string) Entry {
	m.mu.RLock()
	e := m.entries[namespace]
	m.mu.RUnlock()
	return e
}

func (m *Memory) Dispatch(a Action) (Entry, bool) {
	m.mu.Lock()
	cur := m.entries[a.Namespace]
	if a.Conditional && cur.Version != a.IfVersion {
		m.mu.Unlock()
		return cur, false
	}
	var next Entry
	switch a.Type {
	case Set:
		next = Entry{Value: a.Value, Present: true}
	case Reset:
		next = Entry{}
	default:
		m.mu.Unlock()
		return cur, false
	}
	m.version++
	next.Version = m.version
	m.entries[a.Namespace] = next
	m.mu.Unlock()

	m.notify(Change{Namespace: a.Namespace, Entry: next})
	return next, true
}

func (m *Memory) Subscribe(l Listener) func() {
	sub := &subscription{fn: l}
	sub.active.Store(true)

	m.subMu.Lock()
	m.nextID++
	id := m.nextID
	m.subs[id] = sub
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}
}

// Subscribers reports the number of live subscriptions.
func (m *Memory) Subscribers() int {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	return len(m.subs)
}

func (m *Memory) notify(c Change) {
	m.subMu.Lock()
	subs := make([]*subscription, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.subMu.Unlock()

	for _, s := range subs {
		if s.active.Load() {
			s.fn(c)
		}
	}
}
