// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module.

package concurrency

import "errors"

var (
	// ErrExecutorClosed indicates the executor has been shut down
	ErrExecutorClosed = errors.New("executor is closed")

	// ErrQueueFull indicates the bounded work queue rejected a task
	ErrQueueFull = errors.New("task queue is full")

	// ErrNilTask indicates a nil task was submitted
	ErrNilTask = errors.New("task cannot be nil")

	// ErrInvalidWorkerCount indicates invalid worker count configuration
	ErrInvalidWorkerCount = errors.New("invalid worker count")
)
