// Package api
// Author: momentics
//
// Executor contract for application work running beside the reactors.

package api

// Executor abstracts a pool of worker goroutines consuming submitted closures.
type Executor interface {
	// Submit schedules task for execution.
	Submit(task func()) error

	// NumWorkers returns current number of active worker routines.
	NumWorkers() int

	// IncreaseWorkers grows the pool by n workers.
	IncreaseWorkers(n int)

	// Close stops accepting work and releases the workers.
	Close()
}
