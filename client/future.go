package client

import (
	"context"
	"sync"

	"github.com/kbukum/httpkit/errors"
)

// Future is the eventual result of an asynchronous operation. It completes
// exactly once, with a value or an error.
type Future[T any] struct {
	done   chan struct{}
	cancel context.CancelCauseFunc

	mu         sync.Mutex
	settled    bool
	delivering bool
	val        T
	err        error
}

func newFuture[T any](cancel context.CancelCauseFunc) *Future[T] {
	return &Future[T]{done: make(chan struct{}), cancel: cancel}
}

// failedFuture returns a future already completed with err.
func failedFuture[T any](err error) *Future[T] {
	f := newFuture[T](nil)
	var zero T
	f.complete(zero, err)
	return f
}

// complete settles the future and reports whether this call did it.
func (f *Future[T]) complete(v T, err error) bool {
	return f.resolve(v, err, nil)
}

// resolve settles the future with v and err. A non-nil abort cancels the
// operation's context before anyone can observe the outcome. While a
// consumer call is in progress Done stays open until it returns.
func (f *Future[T]) resolve(v T, err, abort error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settled {
		return false
	}
	f.settled = true
	f.val, f.err = v, err
	if abort != nil && f.cancel != nil {
		f.cancel(abort)
	}
	if !f.delivering {
		close(f.done)
	}
	return true
}

// deliver runs fn unless the future has settled, and reports whether it
// ran. The future cannot complete while fn runs, so fn never observes a
// completed future. Only the goroutine producing the result calls it.
func (f *Future[T]) deliver(fn func() error) (bool, error) {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false, nil
	}
	f.delivering = true
	f.mu.Unlock()

	err := fn()

	f.mu.Lock()
	f.delivering = false
	if f.settled {
		close(f.done)
	}
	f.mu.Unlock()
	return true, err
}

// Done is closed once the future completes.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the future completes or ctx is done. Giving up on ctx
// does not cancel the operation.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, errors.Cancelled(ctx.Err())
	}
}

// Get blocks until the future completes.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.val, f.err
}

// Cancel fails the future with CANCELLED and aborts the operation. It
// reports false when the future had already completed. During a consumer
// call the outcome is fixed at once and Done closes when the call returns.
func (f *Future[T]) Cancel() bool {
	var zero T
	return f.resolve(zero, errors.Cancelled(nil), errCancelledByCaller)
}

// fail completes the future with err and aborts the operation.
func (f *Future[T]) fail(err error) {
	var zero T
	f.resolve(zero, err, err)
}

// Err returns the failure without blocking; nil while pending or on success.
func (f *Future[T]) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

var errCancelledByCaller = errors.Cancelled(nil)
