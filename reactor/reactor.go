// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reactor is a single-threaded event loop over one bounded queue of
// (handler, message) pairs. It also hosts the reentrant wait, run inline
// in a callback, that consumes the queue until a specific reply arrives.

package reactor

import (
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-dispatch/internal/concurrency"
)

// DefaultQueueCapacity is the per-reactor bound on pending events.
const DefaultQueueCapacity = 100000

// ReactorID is a slot index assigned by the Registry.
type ReactorID int

// ReactorKind customises a reactor at creation. AuxInit runs once, on the
// reactor's thread, after the reactor is bound and outside every registry
// lock, so it may register handlers.
type ReactorKind interface {
	AuxInit(reg *Registry, rc *Reactor)
}

// PlainKind is a reactor with no post-construction work.
type PlainKind struct{}

func (PlainKind) AuxInit(*Registry, *Reactor) {}

type reactorEvent struct {
	handler EventHandler
	msg     *Message
}

// Reactor owns one event queue and the loop that drains it.
type Reactor struct {
	id       ReactorID
	thread   concurrency.ThreadID
	kind     ReactorKind
	registry *Registry
	events   *concurrency.BoundedQueue[reactorEvent]
	exit     atomic.Bool
	wired    atomic.Bool // thread locked by Register, released by Shutdown

	waiting atomic.Bool
}

func newReactor(reg *Registry, id ReactorID, tid concurrency.ThreadID, kind ReactorKind, capacity int) *Reactor {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Reactor{
		id:       id,
		thread:   tid,
		kind:     kind,
		registry: reg,
		events:   concurrency.NewBoundedQueue[reactorEvent](capacity),
	}
}

// ID returns the registry slot of this reactor.
func (rc *Reactor) ID() ReactorID { return rc.id }

// Thread returns the OS thread the reactor is bound to.
func (rc *Reactor) Thread() ThreadID { return rc.thread }

// Kind returns the kind the reactor was created with.
func (rc *Reactor) Kind() ReactorKind { return rc.kind }

// Pending returns the number of queued events.
func (rc *Reactor) Pending() int { return rc.events.Len() }

// Exited reports whether exit has been requested.
func (rc *Reactor) Exited() bool { return rc.exit.Load() }

// Waiting reports whether a reentrant wait is active.
func (rc *Reactor) Waiting() bool { return rc.waiting.Load() }

// addEvent queues one delivery; false when full or exited.
func (rc *Reactor) addEvent(h EventHandler, msg *Message) bool {
	if rc.exit.Load() {
		return false
	}
	return rc.events.Push(reactorEvent{handler: h, msg: msg})
}

// requestExit stops the loop. Closing the queue wakes a blocked pop; whatever
// is still queued is never dispatched. Deregistration markers among the
// leftovers are still accounted so their handlers can finish removal.
func (rc *Reactor) requestExit() {
	rc.exit.Store(true)
	rc.events.Close()
	for _, ev := range rc.events.Drain() {
		rc.discard(ev)
	}
}

// discard drops ev without dispatching it.
func (rc *Reactor) discard(ev reactorEvent) {
	if ev.handler.handlerBase().isOwnMarker(ev.msg) {
		rc.registry.markerArrived(rc, ev.handler)
	}
}

// run is the outer loop. It returns once exit is observed.
func (rc *Reactor) run() {
	for {
		ev, ok := rc.events.Pop()
		if !ok {
			return
		}
		if rc.exit.Load() {
			rc.discard(ev)
			return
		}
		rc.dispatch(ev)
	}
}

func (rc *Reactor) dispatch(ev reactorEvent) {
	b := ev.handler.handlerBase()
	switch b.lifecycle() {
	case stateRemoved:
		rc.registry.count(metricDropped)
		return
	case stateDeregistering:
		if b.isOwnMarker(ev.msg) {
			rc.registry.markerArrived(rc, ev.handler)
			return
		}
	}
	if !b.beginCallback() {
		rc.registry.count(metricDropped)
		return
	}
	defer b.endCallback()
	defer func() {
		if p := recover(); p != nil {
			rc.registry.count(metricPanics)
			rc.registry.log.Error(logPrefix+" - handler panicked",
				"reactor", rc.id, "handle", ev.msg.Handle().String(),
				"panic", p, "stack", string(debug.Stack()))
		}
	}()
	ev.handler.HandleEvent(ev.msg)
}

// requeue moves ev to the tail.
func (rc *Reactor) requeue(ev reactorEvent) {
	if !rc.events.Push(ev) {
		rc.registry.count(metricRequeueLost)
		rc.registry.log.Warn(logPrefix+" - re-queue rejected, event lost",
			"reactor", rc.id, "handle", ev.msg.Handle().String())
	}
}

// waitInLoop consumes this reactor's queue until an event for h carrying
// handle arrives. Must be called from a callback running on this reactor.
// Non-matching events are re-queued at the tail, so they are kept but may be
// reordered behind newer posts.
//
// The wait runs no callbacks of its own, but a marker it consumes can fire
// OnDestroyable on this thread; a wait started from there is refused.
func (rc *Reactor) waitInLoop(h EventHandler, handle Handle) *Message {
	if !rc.registry.IsHandlerRegistered(h, handle) {
		return nil
	}
	if !rc.waiting.CompareAndSwap(false, true) {
		return nil
	}
	defer rc.waiting.Store(false)

	waiter := h.handlerBase()
	backoff := waitBackoff{max: rc.registry.cfg.waitBackoffMax}
	requeued := 0

	for {
		ev, ok := rc.events.Pop()
		if !ok {
			return nil
		}
		if rc.exit.Load() {
			rc.discard(ev)
			return nil
		}
		got := ev.msg.Handle()
		owner := ev.handler.handlerBase()

		if owner == waiter {
			if got == handle {
				return ev.msg
			}
			if waiter.IsDeregistering() && got == waiter.DeregistrationHandle() {
				// Pending teardown wins over the awaited reply.
				rc.requeue(ev)
				return nil
			}
			rc.requeue(ev)
			requeued++
		} else if !owner.IsDeregistering() || got == rc.foreignMarker(waiter, owner) {
			rc.requeue(ev)
			requeued++
		} else {
			if owner.isOwnMarker(ev.msg) {
				// The marker leaves the queue but still counts toward the drain.
				rc.registry.markerArrived(rc, ev.handler)
			} else {
				rc.registry.count(metricDropped)
			}
			requeued = 0
		}

		backoff.pause(requeued > rc.events.Len())
	}
}

// foreignMarker is the Handle that keeps another deregistering handler's
// event alive during a reentrant wait. By default it is the waiting
// handler's own marker Handle; WithTargetMarkerMatch switches to the event
// owner's marker Handle.
func (rc *Reactor) foreignMarker(waiter, owner *HandlerBase) Handle {
	if rc.registry.cfg.targetMarkerMatch {
		return owner.DeregistrationHandle()
	}
	return waiter.DeregistrationHandle()
}

// waitBackoff yields between re-queue iterations and escalates to short
// sleeps once a whole queue's worth of events went by without a match.
type waitBackoff struct {
	cur, max time.Duration
}

func (w *waitBackoff) pause(fullCycle bool) {
	if !fullCycle || w.max <= 0 {
		w.cur = 0
		runtime.Gosched()
		return
	}
	if w.cur == 0 {
		w.cur = time.Microsecond
	}
	time.Sleep(w.cur)
	w.cur *= 2
	if w.cur > w.max {
		w.cur = w.max
	}
}
