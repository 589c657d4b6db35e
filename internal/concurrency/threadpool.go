// File: internal/concurrency/threadpool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ThreadPool wraps Executor with a fixed initial size.

package concurrency

// ThreadPool is a thin facade over Executor.
type ThreadPool struct {
	executor *Executor
}

// NewThreadPool starts size workers sharing a queue of queueSize tasks.
func NewThreadPool(size, queueSize int) *ThreadPool {
	return &ThreadPool{
		executor: NewExecutor(size, queueSize),
	}
}

func (tp *ThreadPool) Submit(f func()) error {
	return tp.executor.Submit(f)
}

func (tp *ThreadPool) Size() int {
	return tp.executor.NumWorkers()
}

// Grow adds n workers.
func (tp *ThreadPool) Grow(n int) error {
	if n <= 0 {
		return ErrInvalidWorkerCount
	}
	if tp.executor.closed.Load() {
		return ErrExecutorClosed
	}
	tp.executor.IncreaseWorkers(n)
	return nil
}

func (tp *ThreadPool) Executor() *Executor {
	return tp.executor
}

func (tp *ThreadPool) Close() {
	tp.executor.Close()
}
