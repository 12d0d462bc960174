// Package task provides a cancellable future for bounded waits.
//
// A Future runs one function in its own goroutine under a context derived
// from the caller's, with an optional deadline. The future settles exactly
// once: with the function's result, with a timeout, or with cancellation.
//
//	f := task.Go(ctx, 5*time.Second, func(ctx context.Context) (Info, error) {
//	    return system.GetSystemInfo(ctx)
//	})
//	defer f.Cancel()
//	info, err := f.Await(ctx)
package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
)

// ErrCancelled is returned by Await after Cancel settled the future
var ErrCancelled = errors.New("task cancelled")

// Future is the pending result of an asynchronous operation
type Future[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc

	once   sync.Once
	value  T
	err    error
	settle sync.Mutex
}

// Go starts fn and returns its future. A timeout <= 0 means no deadline
// beyond the parent context.
func Go[T any](parent context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) *Future[T] {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}

	f := &Future[T]{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		v, err := fn(ctx)
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = timeoutError(timeout, err)
		}
		f.resolve(v, err)
	}()

	go func() {
		<-ctx.Done()
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			f.resolve(zero, timeoutError(timeout, nil))
			return
		}
		f.resolve(zero, ErrCancelled)
	}()

	return f
}

func timeoutError(timeout time.Duration, cause error) error {
	e := errs.Newf(errs.KindTimeout, "task", "deadline of %s exceeded", timeout)
	e.Err = cause
	return e
}

// resolve settles the future once; later results are discarded
func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.settle.Lock()
		f.value = v
		f.err = err
		f.settle.Unlock()
		close(f.done)
		f.cancel()
	})
}

// Cancel settles a pending future with ErrCancelled and signals the
// function's context. The underlying operation observes cancellation only if
// it honours ctx.
func (f *Future[T]) Cancel() {
	var zero T
	f.resolve(zero, ErrCancelled)
}

// Done is closed once the future settles
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future settles or ctx ends. Ending ctx does not
// cancel the future.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		f.settle.Lock()
		defer f.settle.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Settled reports whether the future has a result
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
