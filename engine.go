package usestorage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Hampfh/use-storage/adapter"
	"github.com/Hampfh/use-storage/schema"
	"github.com/Hampfh/use-storage/store"
)

const (
	opRead  = "read"
	opWrite = "write"
	opClear = "clear"
)

// Engine synchronizes registered namespaces between a Store and an Adapter.
// It is safe for concurrent use.
type Engine struct {
	registry  *schema.Registry
	adapter   adapter.Adapter
	store     store.Store
	log       Logger
	hooks     Hooks
	bootstrap Bootstrap
	loadTTL   timeout
	readDef   readOptions
	guard     bool

	refresh singleflight.Group

	mu      sync.Mutex
	slots   map[string]*loadSlot
	pending map[string]*pendingCommit
	closed  bool
	bg      sync.WaitGroup // loads and corrupt clears

	closeOnce sync.Once
	closeErr  error
}

func newEngine(opts Options) (*Engine, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("usestorage: registry is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("usestorage: adapter is required")
	}
	switch opts.Bootstrap {
	case BootstrapPerNamespace, BootstrapGlobal:
	default:
		return nil, fmt.Errorf("usestorage: unknown bootstrap mode %d", opts.Bootstrap)
	}

	e := &Engine{
		registry:  opts.Registry,
		adapter:   opts.Adapter,
		bootstrap: opts.Bootstrap,
		loadTTL:   timeout(opts.LoadTimeout),
		readDef:   readOptions{clearOnCorrupt: opts.ClearOnCorrupt, onCorrupt: opts.OnCorrupt},
		guard:     opts.GuardRollback,
		slots:     make(map[string]*loadSlot),
		pending:   make(map[string]*pendingCommit),
	}

	// defaults
	e.log = coalesce[Logger](opts.Logger, NopLogger{})
	e.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if opts.Store != nil {
		e.store = opts.Store
	} else {
		e.store = store.NewMemory()
	}
	return e, nil
}

// Store exposes the shared cache, e.g. to subscribe to every namespace.
func (e *Engine) Store() store.Store { return e.store }

// Registry returns the schema registry the engine validates against.
func (e *Engine) Registry() *schema.Registry { return e.registry }

// Read issues exactly one adapter read for name and returns the validated
// value. Absent data, backend failures and corrupt payloads all yield
// (nil, false); only corrupt payloads reach OnCorrupt. Read never touches
// the Store.
func (e *Engine) Read(ctx context.Context, name string, opts ...ReadOption) (any, bool) {
	entry, ok := e.registry.Lookup(name)
	if !ok {
		e.log.Warn("read of unknown namespace", Fields{"ns": name})
		return nil, false
	}
	ro := e.readDef
	for _, o := range opts {
		o(&ro)
	}

	raw, found, err := e.adapter.ReadFile(ctx, name)
	if errors.Is(err, adapter.ErrCorrupt) {
		e.corrupt(ctx, ro, &CorruptError{Namespace: name, Raw: raw, Err: err})
		return nil, false
	}
	if err != nil {
		berr := &BackendError{Op: opRead, Namespace: name, Err: err}
		e.log.Warn("read failed; treating as absent", Fields{"ns": name, "err": err})
		e.hooks.ReadFailed(name, berr)
		return nil, false
	}
	if !found {
		return nil, false
	}

	v, err := entry.Decode(raw)
	if err != nil {
		e.corrupt(ctx, ro, &CorruptError{Namespace: name, Raw: raw, Err: err})
		return nil, false
	}
	return v, true
}

func (e *Engine) corrupt(ctx context.Context, ro readOptions, cerr *CorruptError) {
	e.log.Warn("corrupt data; treating as absent", Fields{"ns": cerr.Namespace, "bytes": len(cerr.Raw), "err": cerr.Err})
	e.hooks.CorruptRead(cerr.Namespace, cerr)
	if ro.onCorrupt != nil {
		ro.onCorrupt(ctx, cerr)
	}
	if ro.clearOnCorrupt {
		e.clearInBackground(cerr.Namespace)
	}
}

// Write validates data, commits it to the Store optimistically and persists
// it. A validation failure returns a *SchemaMismatchError without touching
// the cache or the backend. A backend failure rolls the cache back and
// returns (false, nil).
func (e *Engine) Write(ctx context.Context, name string, data any) (bool, error) {
	entry, ok := e.registry.Lookup(name)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownNamespace, name)
	}
	v, err := entry.Check(data)
	if err != nil {
		return false, &SchemaMismatchError{Namespace: name, Err: err}
	}
	raw, err := entry.Encode(v)
	if err != nil {
		return false, fmt.Errorf("usestorage: encode %q: %w", name, err)
	}
	ok = e.commit(ctx, name, opWrite,
		store.Action{Type: store.Set, Value: v},
		func(ctx context.Context) error { return e.adapter.WriteFile(ctx, name, raw) })
	return ok, nil
}

// Clear resets name to its default (or absent when it has none) and removes
// it from the backend. A backend failure rolls the cache back.
func (e *Engine) Clear(ctx context.Context, name string) bool {
	entry, ok := e.registry.Lookup(name)
	if !ok {
		e.log.Warn("clear of unknown namespace", Fields{"ns": name})
		return false
	}
	next := store.Action{Type: store.Reset}
	if def, ok := entry.DefaultValue(); ok {
		next = store.Action{Type: store.Set, Value: def}
	}
	return e.commit(ctx, name, opClear, next,
		func(ctx context.Context) error { return e.adapter.ClearFile(ctx, name) })
}

// pendingCommit counts commits of one namespace whose persist has not
// returned yet. idle is closed when the count drops to zero.
type pendingCommit struct {
	n    int
	idle chan struct{}
}

func (e *Engine) beginCommit(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.pending[name]
	if p == nil {
		p = &pendingCommit{idle: make(chan struct{})}
		e.pending[name] = p
	}
	p.n++
}

func (e *Engine) endCommit(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.pending[name]
	p.n--
	if p.n == 0 {
		close(p.idle)
		delete(e.pending, name)
	}
}

// commit is the compensating transaction shared by Write and Clear: capture
// the current entry, dispatch next (subscribers see it before persist runs),
// await persist and restore the captured entry if it fails.
func (e *Engine) commit(ctx context.Context, name, op string, next store.Action, persist func(context.Context) error) bool {
	e.beginCommit(name)
	defer e.endCommit(name)

	prev := e.store.Get(name)
	next.Namespace = name
	cur, _ := e.store.Dispatch(next)
	e.log.Debug("optimistic commit", Fields{"ns": name, "op": op, "version": cur.Version})

	err := persist(ctx)
	if err == nil {
		return true
	}

	berr := &BackendError{Op: op, Namespace: name, Err: err}
	rollback := restore(name, prev)
	if e.guard {
		rollback.Conditional = true
		rollback.IfVersion = cur.Version
	}
	if _, applied := e.store.Dispatch(rollback); !applied {
		e.log.Warn("backend failed; newer commit kept", Fields{"ns": name, "op": op, "err": err})
		e.hooks.RollbackSkipped(name)
		return false
	}
	e.log.Warn("backend failed; rolled back", Fields{"ns": name, "op": op, "err": err})
	if op == opClear {
		e.hooks.ClearRolledBack(name, berr)
	} else {
		e.hooks.WriteRolledBack(name, berr)
	}
	return false
}

// restore builds the action that puts prev back.
func restore(name string, prev store.Entry) store.Action {
	if !prev.Present {
		return store.Action{Type: store.Reset, Namespace: name}
	}
	return store.Action{Type: store.Set, Namespace: name, Value: prev.Value}
}

type refreshResult struct {
	v  any
	ok bool
}

// Refresh reads name from the backend, bypassing the initial load guard, and
// overwrites the cache with the result: present sets it, anything else
// resets it to absent. Concurrent refreshes of one namespace share one read.
func (e *Engine) Refresh(ctx context.Context, name string) (any, bool) {
	if _, ok := e.registry.Lookup(name); !ok {
		e.log.Warn("refresh of unknown namespace", Fields{"ns": name})
		return nil, false
	}
	res, _, _ := e.refresh.Do(name, func() (any, error) {
		v, ok := e.Read(ctx, name)
		if ok {
			e.store.Dispatch(store.Action{Type: store.Set, Namespace: name, Value: v})
		} else {
			e.store.Dispatch(store.Action{Type: store.Reset, Namespace: name})
		}
		return refreshResult{v: v, ok: ok}, nil
	})
	r := res.(refreshResult)
	return r.v, r.ok
}

// clearInBackground removes a corrupt payload without blocking the reader.
func (e *Engine) clearInBackground(name string) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.bg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.bg.Done()
		ctx, cancel := e.loadTTL.context(context.Background())
		defer cancel()
		if err := e.adapter.ClearFile(ctx, name); err != nil {
			e.log.Warn("clear of corrupt data failed", Fields{"ns": name, "err": err})
			return
		}
		e.log.Debug("cleared corrupt data", Fields{"ns": name})
	}()
}

// Close waits for in-flight loads and background clears, then closes the
// adapter. If ctx ends first the adapter is left open for the stragglers and
// Close returns the context error. Later calls return the first result.
func (e *Engine) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()

		done := make(chan struct{})
		go func() {
			e.bg.Wait()
			close(done)
		}()
		select {
		case <-done:
			e.closeErr = e.adapter.Close(ctx)
		case <-ctx.Done():
			e.log.Warn("close timed out; adapter left open", Fields{"err": ctx.Err()})
			e.closeErr = fmt.Errorf("usestorage: close: %w", ctx.Err())
		}
	})
	return e.closeErr
}
