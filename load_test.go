package usestorage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Hampfh/use-storage/codec"
	"github.com/Hampfh/use-storage/schema"
)

func TestLoadSingleton(t *testing.T) {
	ctx := context.Background()
	fa := newFakeAdapter()
	s := newSettingsSchema()
	hooks := &recHooks{}
	e := newTestEngine(t, fa, []schema.Entry{s}, func(o *Options) { o.Hooks = hooks })
	if err := fa.Adapter.WriteFile(ctx, "settings", []byte(`{"theme":"stored","volume":3}`)); err != nil {
		t.Fatal(err)
	}

	release := fa.gateReads()
	if st := e.State("settings"); st != NotStarted {
		t.Fatalf("state before load = %v", st)
	}

	const k = 16
	var wg sync.WaitGroup
	handles := make([]*Handle[settings], k)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := Open(e, s)
			if err != nil {
				t.Errorf("Open: %v", err)
				return
			}
			handles[i] = h
		}()
	}
	wg.Wait()
	defer func() {
		for _, h := range handles {
			if h != nil {
				h.Close()
			}
		}
	}()

	if st := e.State("settings"); st != InFlight {
		t.Fatalf("state while reading = %v", st)
	}
	for _, h := range handles {
		if h.Initialized() {
			t.Fatalf("handle initialized before load finished")
		}
	}
	release()

	for _, h := range handles {
		if err := h.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		if v, ok := h.Value(); !ok || v.Theme != "stored" {
			t.Fatalf("Value = %+v, %v", v, ok)
		}
	}
	if n := fa.reads.Load(); n != 1 {
		t.Fatalf("adapter reads = %d, want 1", n)
	}
	if e.State("settings") != Done {
		t.Fatalf("state after load = %v", e.State("settings"))
	}
	if hooks.count("load_committed(true):settings") != 1 {
		t.Fatalf("hooks = %v", hooks.events)
	}

	// Done: later mounts read the cache, no further I/O
	h, err := Open(e, s)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	if !h.Initialized() {
		t.Fatalf("handle opened after Done should be initialized")
	}
	if n := fa.reads.Load(); n != 1 {
		t.Fatalf("adapter reads after Done = %d", n)
	}
}

func TestLoadGlobalBootstrap(t *testing.T) {
	ctx := context.Background()
	fa := newFakeAdapter()
	a := newSettingsSchema()
	b := schema.New[string]("motd", codec.String{})
	e := newTestEngine(t, fa, []schema.Entry{a, b}, func(o *Options) { o.Bootstrap = BootstrapGlobal })
	if err := fa.Adapter.WriteFile(ctx, "motd", []byte("hello")); err != nil {
		t.Fatal(err)
	}

	first := e.Loaded("settings")
	second := e.Loaded("motd")
	if first != second {
		t.Fatalf("global bootstrap should share one load")
	}
	waitClosed(t, first)

	if n := fa.reads.Load(); n != 2 {
		t.Fatalf("adapter reads = %d, want one per namespace", n)
	}
	if got := e.Store().Get("motd"); !got.Present || got.Value != "hello" {
		t.Fatalf("motd = %+v", got)
	}
	if e.State("settings") != Done || e.State("motd") != Done {
		t.Fatalf("states = %v %v", e.State("settings"), e.State("motd"))
	}
}

func TestWriteDuringLoadIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	fa := newFakeAdapter()
	s := newSettingsSchema()
	e := newTestEngine(t, fa, []schema.Entry{s}, nil)
	if err := fa.Adapter.WriteFile(ctx, "settings", []byte(`{"theme":"old","volume":1}`)); err != nil {
		t.Fatal(err)
	}

	release := fa.gateReads()
	done := e.Loaded("settings")
	waitFor(t, "load read", func() bool { return fa.reads.Load() == 1 })

	if ok, _ := e.Write(ctx, "settings", settings{Theme: "new"}); !ok {
		t.Fatal("write failed")
	}
	release()
	waitClosed(t, done)

	if got := e.Store().Get("settings").Value.(settings).Theme; got != "new" {
		t.Fatalf("load clobbered a newer write: %q", got)
	}
}

func TestWriteAfterLoadStartsIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	fa := newFakeAdapter()
	e := newTestEngine(t, fa, []schema.Entry{newSettingsSchema()}, nil)
	if err := fa.Adapter.WriteFile(ctx, "settings", []byte(`{"theme":"old","volume":1}`)); err != nil {
		t.Fatal(err)
	}

	done := e.Loaded("settings")
	// the write stays unpersisted until the load has settled
	fa.setOnWrite(func(ctx context.Context, _ string, _ []byte) error {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	ok, err := e.Write(ctx, "settings", settings{Theme: "new", Volume: 2})
	if err != nil || !ok {
		t.Fatalf("Write = %v, %v", ok, err)
	}
	waitClosed(t, done)

	if got := e.Store().Get("settings").Value.(settings); got.Theme != "new" {
		t.Fatalf("cache = %+v, want the newer write", got)
	}
	raw, _, _ := fa.Adapter.ReadFile(ctx, "settings")
	if !strings.Contains(string(raw), `"new"`) {
		t.Fatalf("backend = %s", raw)
	}
}

func TestLoadWaitsForPendingCommit(t *testing.T) {
	cases := []struct {
		name     string
		writeErr error
		want     string
	}{
		{"commit_persists", nil, "new"},
		{"commit_rolls_back", errBackend, "old"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			fa := newFakeAdapter()
			e := newTestEngine(t, fa, []schema.Entry{newSettingsSchema()}, nil)
			if err := fa.Adapter.WriteFile(ctx, "settings", []byte(`{"theme":"old","volume":1}`)); err != nil {
				t.Fatal(err)
			}

			entered := make(chan struct{})
			release := make(chan struct{})
			fa.setOnWrite(func(context.Context, string, []byte) error {
				close(entered)
				<-release
				return tc.writeErr
			})
			res := make(chan bool, 1)
			go func() {
				ok, _ := e.Write(ctx, "settings", settings{Theme: "new", Volume: 2})
				res <- ok
			}()
			waitClosed(t, entered)

			done := e.Loaded("settings")
			time.Sleep(20 * time.Millisecond)
			if n := fa.reads.Load(); n != 0 {
				t.Fatalf("load read %d times while a commit was persisting", n)
			}
			if st := e.State("settings"); st != InFlight {
				t.Fatalf("state = %v", st)
			}

			close(release)
			if ok := <-res; ok != (tc.writeErr == nil) {
				t.Fatalf("write ok = %v", ok)
			}
			waitClosed(t, done)

			ent := e.Store().Get("settings")
			if !ent.Present || ent.Value.(settings).Theme != tc.want {
				t.Fatalf("cache = %+v, want theme %q", ent, tc.want)
			}
		})
	}
}

func TestLoadOutlivesCaller(t *testing.T) {
	fa := newFakeAdapter()
	e := newTestEngine(t, fa, []schema.Entry{newSettingsSchema()}, nil)
	if err := fa.Adapter.WriteFile(context.Background(), "settings", []byte(`{"theme":"kept","volume":1}`)); err != nil {
		t.Fatal(err)
	}

	release := fa.gateReads()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- e.Load(ctx, "settings") }()
	waitFor(t, "load read", func() bool { return fa.reads.Load() == 1 })
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("Load = %v, want context.Canceled", err)
	}

	release()
	waitClosed(t, e.Loaded("settings"))
	if got := e.Store().Get("settings"); !got.Present {
		t.Fatalf("commit did not happen after caller left")
	}
}

func TestLoadTimeoutLeavesAbsent(t *testing.T) {
	fa := newFakeAdapter()
	hooks := &recHooks{}
	e := newTestEngine(t, fa, []schema.Entry{newSettingsSchema()}, func(o *Options) {
		o.LoadTimeout = 20 * time.Millisecond
		o.Hooks = hooks
	})
	release := fa.gateReads()
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Load(ctx, "settings"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := e.Store().Get("settings"); got.Present {
		t.Fatalf("timed out load committed %+v", got)
	}
	if hooks.count("read_failed:settings") != 1 || hooks.count("load_committed(false):settings") != 1 {
		t.Fatalf("hooks = %v", hooks.events)
	}
}

func TestLoadUnknownNamespace(t *testing.T) {
	e := newTestEngine(t, newFakeAdapter(), []schema.Entry{newSettingsSchema()}, nil)
	if err := e.Load(context.Background(), "nope"); !errors.Is(err, ErrUnknownNamespace) {
		t.Fatalf("Load(unknown) = %v", err)
	}
	waitClosed(t, e.Loaded("nope"))
}

func TestLoadCorruptUsesEngineDefaults(t *testing.T) {
	ctx := context.Background()
	fa := newFakeAdapter()
	var got []*CorruptError
	var mu sync.Mutex
	e := newTestEngine(t, fa, []schema.Entry{newSettingsSchema()}, func(o *Options) {
		o.ClearOnCorrupt = true
		o.OnCorrupt = func(_ context.Context, err *CorruptError) {
			mu.Lock()
			got = append(got, err)
			mu.Unlock()
		}
	})
	if err := fa.Adapter.WriteFile(ctx, "settings", []byte("not json")); err != nil {
		t.Fatal(err)
	}
	if err := e.Load(ctx, "settings"); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	n := len(got)
	mu.Unlock()
	if n != 1 {
		t.Fatalf("OnCorrupt calls = %d", n)
	}
	waitFor(t, "corrupt payload cleared", func() bool {
		_, found, _ := fa.Adapter.ReadFile(ctx, "settings")
		return !found
	})
}

func TestLoadStateString(t *testing.T) {
	for st, want := range map[LoadState]string{NotStarted: "not_started", InFlight: "in_flight", Done: "done", 9: "unknown"} {
		if st.String() != want {
			t.Fatalf("%d.String() = %q", st, st.String())
		}
	}
}
