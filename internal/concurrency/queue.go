// File: internal/concurrency/queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// BoundedQueue is a blocking FIFO with a capacity rejection policy.
// Storage is an eapache ring-buffer queue guarded by a mutex; consumers park
// on a condition variable instead of spinning.
// Implements api.Queue for cross-package consistency.

package concurrency

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-dispatch/api"
)

// Ensure compile-time interface compliance.
var _ api.Queue[any] = (*BoundedQueue[any])(nil)

// DefaultQueueCapacity is used when a non-positive capacity is requested.
const DefaultQueueCapacity = 2147483647

// BoundedQueue is safe for any number of producers and consumers.
type BoundedQueue[T any] struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond
	items    *queue.Queue
	capacity int
	closed   bool
}

// NewBoundedQueue creates a queue holding at most capacity items.
func NewBoundedQueue[T any](capacity int) *BoundedQueue[T] {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	q := &BoundedQueue[T]{
		items:    queue.New(),
		capacity: capacity,
	}
	q.nonEmpty = sync.NewCond(&q.mu)
	return q
}

// Push appends item; returns false if full or closed.
func (q *BoundedQueue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || q.items.Length() >= q.capacity {
		return false
	}
	q.items.Add(item)
	q.nonEmpty.Signal()
	return true
}

// Pop blocks until an item arrives or the queue is closed.
func (q *BoundedQueue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.items.Length() == 0 && !q.closed {
		q.nonEmpty.Wait()
	}
	if q.closed {
		var zero T
		return zero, false
	}
	return q.items.Remove().(T), true
}

// TryPop removes the oldest item; ok false if empty or closed.
func (q *BoundedQueue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || q.items.Length() == 0 {
		var zero T
		return zero, false
	}
	return q.items.Remove().(T), true
}

// Drain removes and returns every queued item, closed or not.
func (q *BoundedQueue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, 0, q.items.Length())
	for q.items.Length() > 0 {
		out = append(out, q.items.Remove().(T))
	}
	return out
}

// Len returns number of items currently queued.
func (q *BoundedQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// Capacity returns the current bound.
func (q *BoundedQueue[T]) Capacity() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity
}

// SetCapacity changes the bound. Shrinking below Len keeps queued items.
func (q *BoundedQueue[T]) SetCapacity(n int) {
	if n <= 0 {
		n = DefaultQueueCapacity
	}
	q.mu.Lock()
	q.capacity = n
	q.mu.Unlock()
}

// Close rejects further pushes and wakes every blocked Pop.
func (q *BoundedQueue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.nonEmpty.Broadcast()
	q.mu.Unlock()
}

// Closed reports whether Close has been called.
func (q *BoundedQueue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
