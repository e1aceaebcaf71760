package usestorage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Hampfh/use-storage/adapter"
	"github.com/Hampfh/use-storage/adapter/memory"
	"github.com/Hampfh/use-storage/codec"
	"github.com/Hampfh/use-storage/schema"
)

type settings struct {
	Theme  string `json:"theme"`
	Volume int    `json:"volume"`
}

func volumeInRange(s settings) error {
	if s.Volume < 0 || s.Volume > 100 {
		return schema.Errorf("volume", "must be within 0..100, got %d", s.Volume)
	}
	return nil
}

func newSettingsSchema(opts ...schema.Option[settings]) *schema.Schema[settings] {
	base := []schema.Option[settings]{schema.WithValidate(volumeInRange)}
	return schema.New[settings]("settings", codec.JSON[settings]{}, append(base, opts...)...)
}

// fakeAdapter wraps the memory adapter with counters and failure injection.
type fakeAdapter struct {
	*memory.Adapter

	reads  atomic.Int64
	writes atomic.Int64

	mu       sync.Mutex
	readGate chan struct{}
	onWrite  func(ctx context.Context, name string, value []byte) error
	clearErr error
	readErr  error
}

var _ adapter.Adapter = (*fakeAdapter)(nil)

func newFakeAdapter() *fakeAdapter { return &fakeAdapter{Adapter: memory.New()} }

// gateReads makes every read block until the returned func is called.
func (f *fakeAdapter) gateReads() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.readGate = gate
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (f *fakeAdapter) setOnWrite(fn func(ctx context.Context, name string, value []byte) error) {
	f.mu.Lock()
	f.onWrite = fn
	f.mu.Unlock()
}

func (f *fakeAdapter) setClearErr(err error) {
	f.mu.Lock()
	f.clearErr = err
	f.mu.Unlock()
}

func (f *fakeAdapter) setReadErr(err error) {
	f.mu.Lock()
	f.readErr = err
	f.mu.Unlock()
}

func (f *fakeAdapter) ReadFile(ctx context.Context, name string) ([]byte, bool, error) {
	f.reads.Add(1)
	f.mu.Lock()
	gate, readErr := f.readGate, f.readErr
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	if readErr != nil {
		return nil, false, readErr
	}
	return f.Adapter.ReadFile(ctx, name)
}

func (f *fakeAdapter) WriteFile(ctx context.Context, name string, value []byte) error {
	f.writes.Add(1)
	f.mu.Lock()
	fn := f.onWrite
	f.mu.Unlock()
	if fn != nil {
		if err := fn(ctx, name, value); err != nil {
			return err
		}
	}
	return f.Adapter.WriteFile(ctx, name, value)
}

func (f *fakeAdapter) ClearFile(ctx context.Context, name string) error {
	f.mu.Lock()
	err := f.clearErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Adapter.ClearFile(ctx, name)
}

// recHooks records events as "event:namespace".
type recHooks struct {
	mu     sync.Mutex
	events []string
	errs   []error
}

func (h *recHooks) add(ev, ns string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev+":"+ns)
	h.errs = append(h.errs, err)
}

func (h *recHooks) CorruptRead(ns string, err error)     { h.add("corrupt", ns, err) }
func (h *recHooks) ReadFailed(ns string, err error)      { h.add("read_failed", ns, err) }
func (h *recHooks) WriteRolledBack(ns string, err error) { h.add("write_rolled_back", ns, err) }
func (h *recHooks) ClearRolledBack(ns string, err error) { h.add("clear_rolled_back", ns, err) }
func (h *recHooks) RollbackSkipped(ns string)            { h.add("rollback_skipped", ns, nil) }
func (h *recHooks) LoadCommitted(ns string, found bool) {
	h.add(fmt.Sprintf("load_committed(%v)", found), ns, nil)
}

func (h *recHooks) count(event string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.events {
		if e == event {
			n++
		}
	}
	return n
}

func newTestEngine(t *testing.T, fa *fakeAdapter, entries []schema.Entry, optsOpt func(*Options)) *Engine {
	t.Helper()
	opts := Options{
		Registry: schema.MustRegistry(entries...),
		Adapter:  fa,
	}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	e, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Close(ctx)
	})
	return e
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for channel")
	}
}

// waitFor polls cond until it holds.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
