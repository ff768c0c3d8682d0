package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Offloader runs CPU-bound work on a bounded set of background workers so
// the calling goroutine only blocks on dispatch and on completion.
type Offloader struct {
	workers int64
	sem     *semaphore.Weighted
}

// NewOffloader creates an offloader allowing up to workers concurrent tasks.
// If workers <= 0, defaults to 1.
func NewOffloader(workers int64) *Offloader {
	if workers <= 0 {
		workers = 1
	}
	return &Offloader{workers: workers, sem: semaphore.NewWeighted(workers)}
}

// Workers returns the worker limit.
func (o *Offloader) Workers() int64 { return o.workers }

// Task is a handle to a dispatched computation.
type Task[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Dispatch schedules fn on a worker. It blocks until a worker slot is free
// or ctx is canceled; in the latter case the returned task is already failed.
func Dispatch[T any](ctx context.Context, o *Offloader, fn func(context.Context) (T, error)) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}
	if err := o.sem.Acquire(ctx, 1); err != nil {
		t.err = err
		close(t.done)
		return t
	}
	go func() {
		defer close(t.done)
		defer o.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("offloaded task panicked: %v", r)
			}
		}()
		t.val, t.err = fn(ctx)
	}()
	return t
}

// Wait blocks until the task completes or ctx is canceled.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.val, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed when the task has finished.
func (t *Task[T]) Done() <-chan struct{} { return t.done }
