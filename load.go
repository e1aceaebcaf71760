package usestorage

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Hampfh/use-storage/store"
)

// LoadState is the one-way state of an initial load.
type LoadState uint8

const (
	NotStarted LoadState = iota
	InFlight
	Done
)

func (s LoadState) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InFlight:
		return "in_flight"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// globalLoadKey is the single load slot used by BootstrapGlobal.
const globalLoadKey = "*"

type loadSlot struct {
	state LoadState
	done  chan struct{} // closed at Done
	err   error         // set before done is closed
}

// loadBase is what a load compares against before it commits: the entry
// version when the load began and, if commits were still persisting then,
// a channel closed once they finish.
type loadBase struct {
	version uint64
	busy    <-chan struct{}
}

// observeLocked reads the base for name. Callers hold e.mu, which orders it
// against beginCommit.
func (e *Engine) observeLocked(name string) loadBase {
	b := loadBase{version: e.store.Get(name).Version}
	if p := e.pending[name]; p != nil {
		b.busy = p.idle
	}
	return b
}

type timeout time.Duration

// context bounds parent by the timeout; zero means no bound.
func (t timeout) context(parent context.Context) (context.Context, context.CancelFunc) {
	if t <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, time.Duration(t))
}

func (e *Engine) loadKey(name string) string {
	if e.bootstrap == BootstrapGlobal {
		return globalLoadKey
	}
	return name
}

// Loaded starts the initial load of name if nobody has and returns a
// channel closed once it is Done. Unknown names get a closed channel.
func (e *Engine) Loaded(name string) <-chan struct{} {
	if _, ok := e.registry.Lookup(name); !ok {
		e.log.Warn("load of unknown namespace", Fields{"ns": name})
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return e.startLoad(context.Background(), e.loadKey(name)).done
}

// Load starts the initial load of name if needed and waits for it. ctx only
// bounds the wait; the load itself keeps running. A load first requested
// after Close settles without reading and reports ErrClosed.
func (e *Engine) Load(ctx context.Context, name string) error {
	if _, ok := e.registry.Lookup(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, name)
	}
	slot := e.startLoad(ctx, e.loadKey(name))
	select {
	case <-slot.done:
		return slot.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State reports where the initial load of name stands.
func (e *Engine) State(name string) LoadState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if slot := e.slots[e.loadKey(name)]; slot != nil {
		return slot.state
	}
	return NotStarted
}

// startLoad marks the slot InFlight before any I/O so that concurrent callers
// share one read, and records each namespace's base in the same critical
// section. The read runs on an engine goroutine detached from the caller's
// cancellation.
func (e *Engine) startLoad(parent context.Context, key string) *loadSlot {
	e.mu.Lock()
	if slot := e.slots[key]; slot != nil {
		e.mu.Unlock()
		return slot
	}
	slot := &loadSlot{state: InFlight, done: make(chan struct{})}
	e.slots[key] = slot
	if e.closed {
		slot.state = Done
		slot.err = ErrClosed
		close(slot.done)
		e.mu.Unlock()
		return slot
	}

	names := []string{key}
	if key == globalLoadKey && e.bootstrap == BootstrapGlobal {
		names = e.registry.Names()
	}
	bases := make(map[string]loadBase, len(names))
	for _, n := range names {
		bases[n] = e.observeLocked(n)
	}
	e.bg.Add(1)
	e.mu.Unlock()

	go e.runLoad(context.WithoutCancel(parent), key, slot, bases)
	return slot
}

func (e *Engine) runLoad(parent context.Context, key string, slot *loadSlot, bases map[string]loadBase) {
	defer e.bg.Done()
	ctx, cancel := e.loadTTL.context(parent)
	defer cancel()

	var g errgroup.Group
	for n, base := range bases {
		g.Go(func() error {
			e.loadOne(ctx, n, base)
			return nil
		})
	}
	_ = g.Wait()

	e.mu.Lock()
	slot.state = Done
	close(slot.done)
	e.mu.Unlock()
	e.log.Info("initial load done", Fields{"key": key, "namespaces": len(bases)})
}

// loadOne commits the stored value only if the entry has not changed since
// base was taken, so a write landing mid-load wins over older durable data.
// Commits still persisting when the load began are awaited first; their
// value is what the backend will hold.
func (e *Engine) loadOne(ctx context.Context, name string, base loadBase) {
	for base.busy != nil {
		select {
		case <-base.busy:
		case <-ctx.Done():
			e.log.Warn("load gave up waiting for pending commits", Fields{"ns": name, "err": ctx.Err()})
			e.hooks.LoadCommitted(name, false)
			return
		}
		e.mu.Lock()
		base = e.observeLocked(name)
		e.mu.Unlock()
	}

	v, ok := e.Read(ctx, name)
	if !ok {
		e.hooks.LoadCommitted(name, false)
		return
	}
	_, applied := e.store.Dispatch(store.Action{
		Type:        store.Set,
		Namespace:   name,
		Value:       v,
		Conditional: true,
		IfVersion:   base.version,
	})
	if !applied {
		e.log.Debug("load result superseded by newer commit", Fields{"ns": name})
	}
	e.hooks.LoadCommitted(name, true)
}
