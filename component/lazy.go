package component

import (
	"context"
	"fmt"
	"sync"
)

// Lazy builds a value on first use. A failed build is retried by the next
// Get.
type Lazy[T any] struct {
	name  string
	build func(ctx context.Context) (T, error)

	mu      sync.Mutex
	value   T
	ready   bool
	lastErr error
}

// NewLazy returns a Lazy that calls build at most once per successful
// initialisation.
func NewLazy[T any](name string, build func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{name: name, build: build}
}

// Get returns the value, building it if needed.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ready {
		return l.value, nil
	}
	v, err := l.build(ctx)
	if err != nil {
		l.lastErr = err
		var zero T
		return zero, fmt.Errorf("failed to initialize %s: %w", l.name, err)
	}
	l.value, l.ready, l.lastErr = v, true, nil
	return v, nil
}

// Peek returns the value without building it.
func (l *Lazy[T]) Peek() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.ready
}

// LastError returns the most recent build failure, or nil.
func (l *Lazy[T]) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Reset forgets the value and passes it to release if it was built. The
// next Get builds a new one.
func (l *Lazy[T]) Reset(release func(T) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.ready {
		return nil
	}
	v := l.value
	var zero T
	l.value, l.ready = zero, false
	if release == nil {
		return nil
	}
	return release(v)
}
