//go:build windows
// +build windows

// File: internal/concurrency/thread_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows thread identity via GetCurrentThreadId.

package concurrency

import "golang.org/x/sys/windows"

func platformThreadID() ThreadID {
	return ThreadID(windows.GetCurrentThreadId())
}
