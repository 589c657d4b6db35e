// File: internal/concurrency/thread.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// OS thread identity for goroutines wired to their thread.

package concurrency

import "runtime"

// ThreadID identifies an OS thread (or, on platforms without a native id,
// the goroutine locked to it).
type ThreadID uint64

// LockThread wires the calling goroutine to its current OS thread and
// returns that thread's id. Pair with UnlockThread.
func LockThread() ThreadID {
	runtime.LockOSThread()
	return CurrentThreadID()
}

// UnlockThread releases the wiring made by LockThread.
func UnlockThread() {
	runtime.UnlockOSThread()
}

// CurrentThreadID returns the id of the thread executing the caller.
// The value is only stable for goroutines locked with LockThread.
func CurrentThreadID() ThreadID {
	return platformThreadID()
}
