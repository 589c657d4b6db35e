//go:build !linux && !windows
// +build !linux,!windows

// File: internal/concurrency/thread_other.go
// Author: momentics <momentics@gmail.com>
//
// Fallback identity for platforms without a portable thread id in x/sys:
// the id of the calling goroutine. A goroutine locked to its thread is the
// only one that thread runs, so the mapping is one-to-one while locked.

package concurrency

import (
	"bytes"
	"runtime"
	"strconv"
)

func platformThreadID() ThreadID {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// "goroutine 42 [running]:..."
	field := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(field, ' '); i > 0 {
		field = field[:i]
	}
	id, err := strconv.ParseUint(string(field), 10, 64)
	if err != nil {
		return 0
	}
	return ThreadID(id)
}
