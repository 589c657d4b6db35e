// File: reactor/deregisterable.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// DeregisterableHandler packages the deregistration protocol for handlers
// that remove themselves.

package reactor

// DeregisterableOption configures a DeregisterableHandler.
type DeregisterableOption func(*DeregisterableHandler)

// WithMarkerParam derives the deregistration Handle from p instead of a
// random per-instance value. Handlers sharing p share the Handle.
func WithMarkerParam(p string) DeregisterableOption {
	return func(d *DeregisterableHandler) {
		d.setMarkerParam(p)
	}
}

// WithDestroyable sets the hook fired once the handler has drained.
func WithDestroyable(fn func(marker *Message)) DeregisterableOption {
	return func(d *DeregisterableHandler) {
		d.onDestroyable = fn
	}
}

// WithRegisterContinuation sets a hook run after each successful
// registration, once routes are in place.
func WithRegisterContinuation(fn func()) DeregisterableOption {
	return func(d *DeregisterableHandler) {
		d.continuation = fn
	}
}

// DeregisterableHandler is embedded by pointer; the embedding type supplies
// HandleEvent and may shadow OnRegister, OnRegisterContinuation and
// OnDestroyable.
type DeregisterableHandler struct {
	HandlerBase

	reg           *Registry
	onDestroyable func(*Message)
	continuation  func()
}

// NewDeregisterableHandler creates a handler already subscribed to its own
// deregistration Handle.
func NewDeregisterableHandler(reg *Registry, opts ...DeregisterableOption) *DeregisterableHandler {
	d := &DeregisterableHandler{reg: reg}
	for _, opt := range opts {
		opt(d)
	}
	d.AddHandle(d.DeregistrationHandle())
	return d
}

// Deregister starts removal and returns without waiting for the drain.
func (d *DeregisterableHandler) Deregister() bool {
	return d.reg.Deregister(d.self(), false, nil, nil)
}

// DeregisterBlocking returns once no callback of the handler can run again.
// Calling it from the handler's own reactor returns false.
func (d *DeregisterableHandler) DeregisterBlocking() bool {
	return d.reg.Deregister(d.self(), true, nil, nil)
}

// DeregisterWith is Deregister with a caller-built marker and overflow sink.
func (d *DeregisterableHandler) DeregisterWith(blocking bool, marker *Message, overflow Overflow) bool {
	return d.reg.Deregister(d.self(), blocking, marker, overflow)
}

func (d *DeregisterableHandler) OnRegisterContinuation() {
	if d.continuation != nil {
		d.continuation()
	}
}

func (d *DeregisterableHandler) OnDestroyable(marker *Message) {
	if d.onDestroyable != nil {
		d.onDestroyable(marker)
	}
}

// self is the registered handler, which is the embedding value rather than d.
func (d *DeregisterableHandler) self() EventHandler {
	if owner, _ := d.boundOwner(); owner != nil {
		return owner
	}
	return noopHandler{d}
}

// noopHandler stands in for a handler that never registered.
type noopHandler struct{ *DeregisterableHandler }

func (noopHandler) HandleEvent(*Message) {}
