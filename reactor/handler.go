// File: reactor/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventHandler contract and the embedded state shared by the registration,
// dispatch and deregistration protocols.

package reactor

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// markerCommand names the control channel every handler owns for
// deregistration confirmations.
const markerCommand = "marker_deregister"

// EventHandler is a subscriber. Implementations embed HandlerBase (by value,
// used through a pointer) or *DeregisterableHandler and add HandleEvent.
type EventHandler interface {
	// Handles lists the Handles to subscribe on registration.
	Handles() []Handle
	// HandleEvent receives one message at a time on the reactor's thread.
	HandleEvent(msg *Message)
	// OnRegister runs synchronously once per successful registration,
	// before any route is added.
	OnRegister()

	handlerBase() *HandlerBase
}

// Destroyable is implemented by handlers that want to know when the
// deregistration protocol has drained and the handler may be released.
type Destroyable interface {
	OnDestroyable(marker *Message)
}

type lifecycle int32

const (
	stateActive lifecycle = iota
	stateDeregistering
	stateRemoved
)

func (s lifecycle) String() string {
	switch s {
	case stateActive:
		return "active"
	case stateDeregistering:
		return "deregistering"
	case stateRemoved:
		return "removed"
	}
	return "unknown"
}

// HandlerBase carries the bookkeeping the Registry and Reactors need.
// The zero value is ready to use. It must not be copied after first use.
type HandlerBase struct {
	mu   sync.Mutex
	cond sync.Cond // L is &mu, set on first lock

	handles     []Handle
	sealed      bool
	markerParam string
	ctrlOnce    sync.Once
	ctrl        Handle

	state         atomic.Int32
	registering   atomic.Int32
	inFlight      atomic.Int32
	registrations atomic.Int32

	// guarded by mu
	owner          EventHandler
	registry       *Registry
	pendingMarkers int
	postingMarkers bool
	marker         *Message
	destroyed      bool

	destroyOnce sync.Once
}

func (b *HandlerBase) handlerBase() *HandlerBase { return b }

func (b *HandlerBase) lock() {
	b.mu.Lock()
	if b.cond.L == nil {
		b.cond.L = &b.mu
	}
}

// AddHandle declares interest in h. Declarations are sealed by the first
// registration attempt; later calls return false.
func (b *HandlerBase) AddHandle(h Handle) bool {
	b.lock()
	defer b.mu.Unlock()
	if b.sealed {
		return false
	}
	for _, have := range b.handles {
		if have == h {
			return true
		}
	}
	b.handles = append(b.handles, h)
	return true
}

// Handles returns a copy of the declared Handles in declaration order.
func (b *HandlerBase) Handles() []Handle {
	b.lock()
	defer b.mu.Unlock()
	out := make([]Handle, len(b.handles))
	copy(out, b.handles)
	return out
}

// OnRegister is a no-op; embedders may shadow it.
func (b *HandlerBase) OnRegister() {}

// DeregistrationHandle is the private control address used for the
// deregistration marker.
func (b *HandlerBase) DeregistrationHandle() Handle {
	b.ctrlOnce.Do(func() {
		param := b.markerParam
		if param == "" {
			param = uuid.NewString()
		}
		b.ctrl = HandleOf(markerCommand, param)
	})
	return b.ctrl
}

// IsDeregistering reports whether deregistration has started. Once true it
// stays true.
func (b *HandlerBase) IsDeregistering() bool {
	return b.lifecycle() != stateActive
}

// IsRemoved reports whether the handler holds no routes and no further
// callback will start.
func (b *HandlerBase) IsRemoved() bool {
	return b.lifecycle() == stateRemoved
}

// InFlight returns the number of callbacks currently running.
func (b *HandlerBase) InFlight() int {
	return int(b.inFlight.Load())
}

// Registrations returns the number of successful registrations.
func (b *HandlerBase) Registrations() int {
	return int(b.registrations.Load())
}

func (b *HandlerBase) lifecycle() lifecycle {
	return lifecycle(b.state.Load())
}

// setMarkerParam fixes the parameter the control Handle is derived from.
// Only effective before DeregistrationHandle is first called.
func (b *HandlerBase) setMarkerParam(p string) {
	b.markerParam = p
}

// enterRegistration is the registration guard. The counter is raised before
// the second state check, so a deregistration that has seen it at zero can
// never be followed by a completed registration.
func (b *HandlerBase) enterRegistration() bool {
	if b.lifecycle() != stateActive {
		return false
	}
	b.registering.Add(1)
	if b.lifecycle() != stateActive {
		b.leaveRegistration()
		return false
	}
	b.lock()
	b.sealed = true
	b.mu.Unlock()
	return true
}

func (b *HandlerBase) leaveRegistration() {
	if b.registering.Add(-1) == 0 {
		b.lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	}
}

// bind records the owning handler and registry on successful registration.
func (b *HandlerBase) bind(r *Registry, owner EventHandler) {
	b.lock()
	if b.owner == nil {
		b.owner = owner
	}
	if b.registry == nil {
		b.registry = r
	}
	b.mu.Unlock()
	b.registrations.Add(1)
}

func (b *HandlerBase) boundOwner() (EventHandler, *Registry) {
	b.lock()
	defer b.mu.Unlock()
	return b.owner, b.registry
}

// beginDeregistration is the single Active -> Deregistering transition.
func (b *HandlerBase) beginDeregistration() bool {
	return b.state.CompareAndSwap(int32(stateActive), int32(stateDeregistering))
}

// awaitRegistrations blocks until no registration of this handler is mid-flight.
func (b *HandlerBase) awaitRegistrations() {
	b.lock()
	for b.registering.Load() > 0 {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

// beginCallback admits one callback unless the handler is already removed.
// The counter is raised before the state check; markRemoved stores the state
// before reading the counter, so one side always observes the other.
func (b *HandlerBase) beginCallback() bool {
	b.inFlight.Add(1)
	if b.lifecycle() == stateRemoved {
		b.endCallback()
		return false
	}
	return true
}

func (b *HandlerBase) endCallback() {
	if b.inFlight.Add(-1) == 0 && b.lifecycle() != stateActive {
		b.lock()
		b.cond.Broadcast()
		b.mu.Unlock()
		b.maybeDestroy()
	}
}

// startMarkers records the marker about to be posted.
func (b *HandlerBase) startMarkers(marker *Message) {
	b.lock()
	b.marker = marker
	b.postingMarkers = true
	b.mu.Unlock()
}

// isOwnMarker reports whether msg is the marker this handler posted. Handlers
// sharing a marker parameter share the control Handle, so the Handle alone
// does not identify the sender.
func (b *HandlerBase) isOwnMarker(msg *Message) bool {
	if b.lifecycle() == stateActive || msg.Handle() != b.DeregistrationHandle() {
		return false
	}
	b.lock()
	defer b.mu.Unlock()
	return b.marker == msg
}

// finishMarkers adds the number of markers actually queued. It reports true
// when every queued marker has already been consumed.
func (b *HandlerBase) finishMarkers(queued int) bool {
	b.lock()
	defer b.mu.Unlock()
	b.pendingMarkers += queued
	b.postingMarkers = false
	return b.pendingMarkers == 0
}

// consumeMarker accounts one delivered marker. It reports true for the
// marker that completes the drain.
func (b *HandlerBase) consumeMarker() bool {
	b.lock()
	defer b.mu.Unlock()
	b.pendingMarkers--
	return !b.postingMarkers && b.pendingMarkers == 0
}

func (b *HandlerBase) markRemoved() {
	b.state.Store(int32(stateRemoved))
	b.lock()
	b.cond.Broadcast()
	b.mu.Unlock()
	b.maybeDestroy()
}

// maybeDestroy fires OnDestroyable exactly once, after removal with no
// callback running.
func (b *HandlerBase) maybeDestroy() {
	if b.lifecycle() != stateRemoved || b.inFlight.Load() != 0 {
		return
	}
	b.destroyOnce.Do(func() {
		b.lock()
		owner, marker := b.owner, b.marker
		b.mu.Unlock()
		if d, ok := owner.(Destroyable); ok {
			d.OnDestroyable(marker)
		}
		b.lock()
		b.destroyed = true
		b.cond.Broadcast()
		b.mu.Unlock()
	})
}

// awaitDestroyed blocks until maybeDestroy has run its hook.
func (b *HandlerBase) awaitDestroyed() {
	b.lock()
	for !b.destroyed {
		b.cond.Wait()
	}
	b.mu.Unlock()
}
