// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the in-process dispatch core: a Registry routing
// immutable Messages by Handle to EventHandlers, grouped by the Reactor (one
// event loop bound to one OS thread) they were registered on.
//
// A goroutine becomes a reactor thread through Registry.Run or Registry.Start.
// Handlers embed HandlerBase (or a *DeregisterableHandler), declare their
// Handles, and register against the calling thread's reactor or a named
// thread. Any goroutine may Post. Callbacks on one reactor never overlap.
//
// Removal is a protocol rather than a map delete: the handler is flagged,
// in-progress registrations drain, routes are dropped, and a marker message
// queued behind every pending event confirms that nothing addressed to the
// handler is left before OnDestroyable fires.
package reactor
