// Package async runs driver operations in the background and hands out futures for their
// results.
package async

import (
	"context"
	"sync"
)

// Future is the pending result of an operation started with Go or Submit
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Done is closed when the result is available
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Get waits for the result. A cancelled ctx only stops the wait, not the operation.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Go runs fn on its own goroutine
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()

	go func() {
		value, err := fn(ctx)
		f.complete(value, err)
	}()

	return f
}

// Completed returns a future that already holds value and err
func Completed[T any](value T, err error) *Future[T] {
	f := newFuture[T]()
	f.complete(value, err)
	return f
}

// All waits for every future and returns the results in order. The first error encountered
// in that order is returned after all futures are done.
func All[T any](ctx context.Context, futures ...*Future[T]) ([]T, error) {
	results := make([]T, len(futures))

	var firstErr error
	for i, f := range futures {
		value, err := f.Get(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results[i] = value
	}

	return results, firstErr
}
