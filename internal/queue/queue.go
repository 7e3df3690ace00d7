// Package queue is the in-process event channel between the line sources
// and the correlation engine.
package queue

import (
	"context"
	"sync"

	"quietlog/pkg/errors"
)

// Queue is an unbounded multi-producer single-consumer FIFO. Push never
// blocks, so a slow consumer costs memory rather than stalling the
// producers.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	head   int
	closed bool
	notify chan struct{}
}

func New[T any]() *Queue[T] {
	return &Queue[T]{
		notify: make(chan struct{}, 1),
	}
}

// Push appends item. It fails with QUEUE_CLOSED once Close has been called.
func (q *Queue[T]) Push(item T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errors.ErrQueueClosed
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.wake()
	return nil
}

// Pop blocks until an item is available, ctx is done, or the queue is
// closed and drained.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if q.head < len(q.items) {
			item := q.items[q.head]
			q.items[q.head] = zero
			q.head++
			if q.head == len(q.items) {
				q.items = q.items[:0]
				q.head = 0
			} else if q.head > 1024 && q.head*2 > len(q.items) {
				n := copy(q.items, q.items[q.head:])
				q.items = q.items[:n]
				q.head = 0
			}
			q.mu.Unlock()
			return item, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return zero, errors.ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-q.notify:
		}
	}
}

// Len returns the number of items waiting.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Close stops further pushes. Items already queued can still be popped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wake()
}

func (q *Queue[T]) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
