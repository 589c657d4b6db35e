// File: internal/concurrency/executor.go
// Package concurrency implements a worker pool for application tasks.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor dispatches closures to worker goroutines parked on a shared
// BoundedQueue. It serves application code around the reactors; the
// dispatch path never submits work here.

package concurrency

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-dispatch/api"
)

var _ api.Executor = (*Executor)(nil)

// TaskFunc is a unit of work to execute.
type TaskFunc func()

// Executor manages a pool of worker goroutines.
type Executor struct {
	queue      *BoundedQueue[TaskFunc] // shared work queue
	closed     atomic.Bool             // set once by Close
	numWorkers atomic.Int32            // current number of workers
	wg         sync.WaitGroup          // running workers
	mu         sync.Mutex              // protects resizing operations

	// statistics
	totalTasks     atomic.Int64
	completedTasks atomic.Int64
	panickedTasks  atomic.Int64
}

// NewExecutor creates an Executor with numWorkers workers and a work queue
// bounded by queueSize. If numWorkers <= 0, defaults to runtime.NumCPU().
func NewExecutor(numWorkers, queueSize int) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	e := &Executor{queue: NewBoundedQueue[TaskFunc](queueSize)}
	e.IncreaseWorkers(numWorkers)
	return e
}

// Submit enqueues a task for execution.
func (e *Executor) Submit(task func()) error {
	if task == nil {
		return ErrNilTask
	}
	if e.closed.Load() {
		return ErrExecutorClosed
	}
	if !e.queue.Push(task) {
		if e.queue.Closed() {
			return ErrExecutorClosed
		}
		return ErrQueueFull
	}
	e.totalTasks.Add(1)
	return nil
}

// IncreaseWorkers starts n additional workers.
func (e *Executor) IncreaseWorkers(n int) {
	if n <= 0 || e.closed.Load() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := 0; i < n; i++ {
		e.wg.Add(1)
		e.numWorkers.Add(1)
		go e.worker()
	}
}

// NumWorkers returns the current number of active workers.
func (e *Executor) NumWorkers() int {
	return int(e.numWorkers.Load())
}

// QueueLen returns the number of tasks waiting for a worker.
func (e *Executor) QueueLen() int {
	return e.queue.Len()
}

// Close stops the workers after their current task and waits for them to
// exit. Tasks still queued are discarded.
func (e *Executor) Close() {
	if e.closed.CompareAndSwap(false, true) {
		e.queue.Close()
	}
	e.wg.Wait()
}

// Stats returns basic executor metrics.
func (e *Executor) Stats() map[string]int64 {
	total := e.totalTasks.Load()
	completed := e.completedTasks.Load()
	return map[string]int64{
		"total_tasks":     total,
		"completed_tasks": completed,
		"panicked_tasks":  e.panickedTasks.Load(),
		"pending_tasks":   total - completed,
		"num_workers":     int64(e.NumWorkers()),
	}
}

func (e *Executor) worker() {
	defer func() {
		e.numWorkers.Add(-1)
		e.wg.Done()
	}()
	for {
		task, ok := e.queue.Pop()
		if !ok {
			return
		}
		e.executeTask(task)
	}
}

// executeTask runs the task and updates statistics, recovering from panics.
func (e *Executor) executeTask(task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			e.panickedTasks.Add(1)
		}
		e.completedTasks.Add(1)
	}()
	task()
}
