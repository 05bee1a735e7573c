package llm

import (
	"context"
	"sync"
)

// Lazy runs its loader at most once and hands every caller the same result.
// A failed load is remembered too; the loader is not retried.
type Lazy[T any] struct {
	mu     sync.Mutex
	load   func(context.Context) (T, error)
	done   bool
	value  T
	err    error
	loads  int
	closer func(T) error
}

// NewLazy returns a Lazy that will call load on first use.
func NewLazy[T any](load func(context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{load: load}
}

// OnClose registers a release function run by Close if the value loaded.
func (l *Lazy[T]) OnClose(fn func(T) error) *Lazy[T] {
	l.closer = fn
	return l
}

// Get returns the loaded value, loading it first if needed. Concurrent
// callers wait for the single in-flight load.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.done {
		l.value, l.err = l.load(ctx)
		l.loads++
		l.done = true
	}
	return l.value, l.err
}

// Loaded reports whether the loader has run.
func (l *Lazy[T]) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// Loads returns how many times the loader ran (0 or 1).
func (l *Lazy[T]) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

// Close releases the loaded value once. Later calls are no-ops.
func (l *Lazy[T]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.done || l.err != nil || l.closer == nil {
		return nil
	}
	closer := l.closer
	l.closer = nil
	return closer(l.value)
}
