// Package memory is an in-process adapter. Nothing survives the process; it
// backs tests and ephemeral sessions.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Hampfh/use-storage/adapter"
)

type Adapter struct {
	mu     sync.RWMutex
	files  map[string][]byte
	closed bool
}

var (
	_ adapter.Adapter = (*Adapter)(nil)
	_ adapter.Lister  = (*Adapter)(nil)
)

func New() *Adapter {
	return &Adapter{files: make(map[string][]byte)}
}

func (a *Adapter) ReadFile(ctx context.Context, name string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, false, adapter.ErrClosed
	}
	b, ok := a.files[name]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

func (a *Adapter) WriteFile(ctx context.Context, name string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := adapter.CheckName(name); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return adapter.ErrClosed
	}
	a.files[name] = append([]byte(nil), value...)
	return nil
}

func (a *Adapter) ClearFile(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return adapter.ErrClosed
	}
	delete(a.files, name)
	return nil
}

// Names lists stored files in ascending order.
func (a *Adapter) Names(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	out := make([]string, 0, len(a.files))
	for k := range a.files {
		out = append(out, k)
	}
	a.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}

func (a *Adapter) Close(context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	return nil
}
