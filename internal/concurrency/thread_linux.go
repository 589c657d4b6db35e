//go:build linux
// +build linux

// File: internal/concurrency/thread_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux thread identity via gettid(2).

package concurrency

import "golang.org/x/sys/unix"

func platformThreadID() ThreadID {
	return ThreadID(unix.Gettid())
}
