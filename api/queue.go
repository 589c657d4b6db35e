// File: api/queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded FIFO contract shared by reactor queues and worker pools.

package api

// Queue is a bounded, blocking FIFO safe for many producers and consumers.
type Queue[T any] interface {
	// Push appends item; returns false if the queue is at capacity or closed.
	Push(item T) bool
	// Pop blocks until an item is available. Returns false once the queue is closed.
	Pop() (T, bool)
	// TryPop removes the oldest item without blocking.
	TryPop() (T, bool)
	// Len returns the number of queued items.
	Len() int
	// Capacity returns the maximum number of queued items.
	Capacity() int
	// SetCapacity changes the maximum; items already queued are kept.
	SetCapacity(n int)
	// Close wakes all blocked consumers and rejects further pushes.
	Close()
}
