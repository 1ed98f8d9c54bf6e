package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrTimeout is returned when a bounded wait exceeds its deadline. Waits in
// this package and in the harness wrap it, so callers classify with
// errors.Is(err, ErrTimeout).
var ErrTimeout = errors.New("timed out")

// Future is a single-assignment gate. A handler resolves it exactly once;
// one or more goroutines await the result. The zero value is not usable,
// construct with NewFuture.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

// NewFuture creates an unresolved future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve sets the future's value. Only the first Resolve or Fail takes
// effect; later calls are ignored.
func (f *Future[T]) Resolve(v T) {
	f.once.Do(func() {
		f.val = v
		close(f.done)
	})
}

// Fail sets the future's error. Only the first Resolve or Fail takes effect.
func (f *Future[T]) Fail(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done reports whether the future has been resolved or failed.
func (f *Future[T]) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the future settles or the context ends.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AwaitTimeout is Await with a deadline, converting expiry into ErrTimeout.
func (f *Future[T]) AwaitTimeout(ctx context.Context, timeout time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	v, err := f.Await(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		var zero T
		return zero, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	return v, err
}

// Queue is an unbounded FIFO gate with non-blocking Put and blocking Get.
// It is intended for a single consumer fed by event handlers.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	signal chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{signal: make(chan struct{}, 1)}
}

// Put appends an item. It never blocks.
func (q *Queue[T]) Put(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Get removes and returns the oldest item, blocking until one is available
// or the context ends.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return v, nil
		}
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// GetTimeout is Get with a deadline, converting expiry into ErrTimeout.
func (q *Queue[T]) GetTimeout(ctx context.Context, timeout time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	v, err := q.Get(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		var zero T
		return zero, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	return v, err
}

// DrainNow removes and returns all currently buffered items without
// blocking. Used to discard a stale backlog, e.g. bond-state events left
// over from a retried attempt.
func (q *Queue[T]) DrainNow() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// WaitFor subscribes to the named event for the duration of the call and
// returns the first occurrence accepted by pred, which maps the raw handler
// arguments to a typed value. It fails with ErrTimeout when nothing matches
// within the bound; the subscription is removed on all paths.
func WaitFor[T any](ctx context.Context, e *Emitter, eventName string, timeout time.Duration, pred func(args []any) (T, bool)) (T, error) {
	w := NewWatcher()
	defer w.Close()

	fut := NewFuture[T]()
	w.On(e, eventName, func(args ...any) {
		if v, ok := pred(args); ok {
			fut.Resolve(v)
		}
	})

	v, err := fut.AwaitTimeout(ctx, timeout)
	if err != nil {
		var zero T
		if errors.Is(err, ErrTimeout) {
			return zero, fmt.Errorf("waiting for %q: %w", eventName, err)
		}
		return zero, err
	}
	return v, nil
}
