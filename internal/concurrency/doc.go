// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives for hioload-dispatch: a bounded blocking FIFO,
// a guarded key/value map, a worker pool, and OS thread identity used to
// bind reactors to the thread that runs them.
//
// Thread identity is platform-partitioned via build tags (Linux/Windows,
// with a goroutine-id fallback elsewhere).
package concurrency
