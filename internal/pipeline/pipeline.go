// Package pipeline provides the bounded-capacity queue and worker-pool
// primitives that give the indexing pipeline backpressure, ordered
// results, and cooperative cancellation. A worker pool's concurrency is
// given by the caller (values below 1 become 1) and enforced by a
// semaphore from golang.org/x/sync; the pool has no submission queue.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by BoundedQueue operations after Close.
var ErrClosed = errors.New("bounded queue closed")

// BoundedQueue is a fixed-capacity FIFO queue. Enqueue suspends when full;
// Dequeue suspends when empty; Close wakes every waiter with ErrClosed.
type BoundedQueue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	cap    int
	closed bool
}

// NewBoundedQueue creates a queue with the given hard capacity.
func NewBoundedQueue[T any](capacity int) *BoundedQueue[T] {
	q := &BoundedQueue[T]{cap: capacity}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue blocks until there is room, the queue closes, or ctx is done.
func (q *BoundedQueue[T]) Enqueue(ctx context.Context, item T) error {
	done := q.watchCancel(ctx)
	defer done()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) >= q.cap && !q.closed && ctx.Err() == nil {
		q.cond.Wait()
	}
	if q.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	q.items = append(q.items, item)
	q.cond.Broadcast()
	return nil
}

// Dequeue blocks until an item is available, the queue closes and drains,
// or ctx is done.
func (q *BoundedQueue[T]) Dequeue(ctx context.Context) (T, error) {
	done := q.watchCancel(ctx)
	defer done()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed && ctx.Err() == nil {
		q.cond.Wait()
	}
	var zero T
	if len(q.items) == 0 {
		if q.closed {
			return zero, ErrClosed
		}
		return zero, ctx.Err()
	}
	item := q.items[0]
	q.items = q.items[1:]
	q.cond.Broadcast()
	return item, nil
}

// Close wakes all waiters; further Enqueue/Dequeue calls on an empty
// queue return ErrClosed.
func (q *BoundedQueue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Len reports the current queue depth.
func (q *BoundedQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// watchCancel wakes all waiters once ctx is done, so blocked
// Enqueue/Dequeue calls observe cancellation promptly instead of only at
// their next spurious wakeup.
func (q *BoundedQueue[T]) watchCancel(ctx context.Context) func() {
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			q.mu.Lock()
			q.cond.Broadcast()
			q.mu.Unlock()
		case <-stop:
		}
	}()
	return func() { close(stop) }
}

// WorkerPool runs at most a fixed number of tasks concurrently, gated by
// a weighted semaphore; it keeps no queue of pending submissions.
type WorkerPool struct {
	concurrency int
	sem         *semaphore.Weighted
}

// NewWorkerPool creates a pool that runs at most concurrency tasks at
// once; a concurrency below 1 is treated as 1.
func NewWorkerPool(concurrency int) *WorkerPool {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &WorkerPool{concurrency: concurrency, sem: semaphore.NewWeighted(int64(concurrency))}
}

// Map applies f to each input, preserving input-index order in the
// returned slice regardless of completion order ("ordering
// guarantee"). It stops launching new work once ctx is cancelled and
// returns the context error as soon as results already produced have
// been collected.
func (p *WorkerPool) Map(ctx context.Context, inputs int, f func(ctx context.Context, i int) (any, error)) ([]any, error) {
	results := make([]any, inputs)
	errCh := make(chan error, inputs)
	var wg sync.WaitGroup

	for i := 0; i < inputs; i++ {
		if ctx.Err() != nil {
			break
		}
		if err := p.sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer p.sem.Release(1)
			res, err := f(ctx, i)
			if err != nil {
				errCh <- err
				return
			}
			results[i] = res
		}(i)
	}

	wg.Wait()
	close(errCh)

	if ctx.Err() != nil {
		return results, ctx.Err()
	}
	for err := range errCh {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
