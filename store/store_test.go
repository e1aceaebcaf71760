package store

import (
	"sync"
	"testing"
)

func TestDispatchSetResetVersions(t *testing.T) {
	m := NewMemory()

	if e := m.Get("a"); e.Present || e.Version != 0 {
		t.Fatalf("fresh entry = %+v", e)
	}

	e1, ok := m.Dispatch(Action{Type: Set, Namespace: "a", Value: 1})
	if !ok || !e1.Present || e1.Value != 1 || e1.Version == 0 {
		t.Fatalf("set: ok=%v e=%+v", ok, e1)
	}
	e2, ok := m.Dispatch(Action{Type: Set, Namespace: "b", Value: "x"})
	if !ok || e2.Version <= e1.Version {
		t.Fatalf("versions must grow store-wide: %d then %d", e1.Version, e2.Version)
	}
	e3, ok := m.Dispatch(Action{Type: Reset, Namespace: "a"})
	if !ok || e3.Present || e3.Value != nil || e3.Version <= e2.Version {
		t.Fatalf("reset: ok=%v e=%+v", ok, e3)
	}

	state := m.State()
	if len(state) != 2 || state["b"].Value != "x" || state["a"].Present {
		t.Fatalf("state = %+v", state)
	}
	state["b"] = Entry{}
	if m.Get("b").Value != "x" {
		t.Fatalf("State must return a copy")
	}
}

func TestDispatchUnknownType(t *testing.T) {
	m := NewMemory()
	if _, ok := m.Dispatch(Action{Namespace: "a"}); ok {
		t.Fatalf("zero action type must be rejected")
	}
}

func TestConditionalDispatch(t *testing.T) {
	m := NewMemory()

	// never-mutated namespace has version 0
	if _, ok := m.Dispatch(Action{Type: Set, Namespace: "a", Value: 1, Conditional: true, IfVersion: 0}); !ok {
		t.Fatalf("CAS against version 0 should apply on untouched entry")
	}
	cur := m.Get("a")

	if _, ok := m.Dispatch(Action{Type: Set, Namespace: "a", Value: 2, Conditional: true, IfVersion: cur.Version + 7}); ok {
		t.Fatalf("stale CAS should be rejected")
	}
	if m.Get("a").Value != 1 {
		t.Fatalf("rejected CAS must not mutate")
	}
	if _, ok := m.Dispatch(Action{Type: Reset, Namespace: "a", Conditional: true, IfVersion: cur.Version}); !ok {
		t.Fatalf("matching CAS should apply")
	}
}

func TestSubscribeFanOutAndUnsubscribe(t *testing.T) {
	m := NewMemory()
	var mu sync.Mutex
	got := map[string][]Change{}
	listen := func(name string) Listener {
		return func(c Change) {
			mu.Lock()
			got[name] = append(got[name], c)
			mu.Unlock()
		}
	}

	unsubA := m.Subscribe(listen("a"))
	unsubB := m.Subscribe(listen("b"))
	if m.Subscribers() != 2 {
		t.Fatalf("Subscribers = %d", m.Subscribers())
	}

	m.Dispatch(Action{Type: Set, Namespace: "ns1", Value: 1})
	m.Dispatch(Action{Type: Set, Namespace: "ns2", Value: 2})
	unsubA()
	unsubA() // idempotent
	m.Dispatch(Action{Type: Set, Namespace: "ns1", Value: 3})
	unsubB()

	mu.Lock()
	defer mu.Unlock()
	if len(got["a"]) != 2 {
		t.Fatalf("a got %d changes, want 2 (every namespace, none after unsubscribe)", len(got["a"]))
	}
	if len(got["b"]) != 3 || got["b"][2].Entry.Value != 3 || got["b"][1].Namespace != "ns2" {
		t.Fatalf("b got %+v", got["b"])
	}
	if m.Subscribers() != 0 {
		t.Fatalf("Subscribers = %d after unsubscribe", m.Subscribers())
	}
}

func TestListenerMayReenter(t *testing.T) {
	m := NewMemory()
	var seen Entry
	unsub := m.Subscribe(func(c Change) {
		seen = m.Get(c.Namespace)
		if c.Namespace == "src" {
			m.Dispatch(Action{Type: Set, Namespace: "mirror", Value: c.Entry.Value})
		}
	})
	defer unsub()

	m.Dispatch(Action{Type: Set, Namespace: "src", Value: "v"})
	if m.Get("mirror").Value != "v" {
		t.Fatalf("re-entrant dispatch from listener failed")
	}
	if seen.Value != "v" {
		t.Fatalf("listener read %+v", seen)
	}
}

func TestConcurrentDispatch(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Dispatch(Action{Type: Set, Namespace: "n", Value: i})
		}(i)
	}
	wg.Wait()
	if e := m.Get("n"); e.Version != 50 || !e.Present {
		t.Fatalf("entry = %+v, want version 50", e)
	}
}
