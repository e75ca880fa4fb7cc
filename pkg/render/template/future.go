package template

import (
	"context"
	"fmt"
)

// Future is the pending result of an asynchronous render. It resolves exactly
// once; every reader observes the same value and error.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn on its own goroutine and returns a future for its result. A panic
// in fn resolves the future with an error wrapping ErrEnginePanic.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.value = zero
				if err, ok := r.(error); ok {
					f.err = fmt.Errorf("%w: %w", ErrEnginePanic, err)
					return
				}
				f.err = fmt.Errorf("%w: %v", ErrEnginePanic, r)
			}
		}()
		f.value, f.err = fn()
	}()
	return f
}

// Resolved returns a future that is already complete.
func Resolved[T any](value T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), value: value, err: err}
	close(f.done)
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future resolves.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.value, f.err
}

// Await blocks until the future resolves or ctx ends, whichever is first. When
// ctx wins, ctx.Err() is returned and the work keeps running to completion in
// the background.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
