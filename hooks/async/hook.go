// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    CorruptEvery: 10, // sample logs: ~every 10th corrupt read
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	eng, _ := usestorage.New(usestorage.Options{
//	    Registry: registry,
//	    Adapter:  adapter,
//	    Hooks:    hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	usestorage "github.com/Hampfh/use-storage"
)

// Hooks runs an inner Hooks on worker goroutines. Events that find the queue
// full, or arrive after Close, are dropped and counted.
type Hooks struct {
	inner usestorage.Hooks
	q     chan func()
	wg    sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ usestorage.Hooks = (*Hooks)(nil)

func New(inner usestorage.Hooks, workers, qlen int) *Hooks {
	if inner == nil {
		inner = usestorage.NopHooks{}
	}
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Safe to call more than
// once.
func (h *Hooks) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.q)
	h.mu.Unlock()
	h.wg.Wait()
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) CorruptRead(ns string, err error) { h.try(func() { h.inner.CorruptRead(ns, err) }) }
func (h *Hooks) ReadFailed(ns string, err error)  { h.try(func() { h.inner.ReadFailed(ns, err) }) }
func (h *Hooks) RollbackSkipped(ns string)        { h.try(func() { h.inner.RollbackSkipped(ns) }) }
func (h *Hooks) WriteRolledBack(ns string, err error) {
	h.try(func() { h.inner.WriteRolledBack(ns, err) })
}
func (h *Hooks) ClearRolledBack(ns string, err error) {
	h.try(func() { h.inner.ClearRolledBack(ns, err) })
}
func (h *Hooks) LoadCommitted(ns string, found bool) {
	h.try(func() { h.inner.LoadCommitted(ns, found) })
}
