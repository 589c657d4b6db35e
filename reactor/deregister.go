// File: reactor/deregister.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Deregistration: flag, drain in-progress registrations, drop routes, then
// confirm through a marker queued behind everything already routed to the
// handler.

package reactor

import "github.com/momentics/hioload-dispatch/internal/concurrency"

// Deregister removes h from every route. It returns false if h was never
// registered or deregistration has already started.
//
// Routes other than the handler's deregistration Handle are dropped at once;
// marker (or a default one, retargeted to that Handle if needed) is then
// posted through the normal path with rejects recorded into overflow. Each
// delivered marker closes the handler's route on its reactor; the last one
// marks the handler removed and, once no callback runs, fires OnDestroyable.
//
// With blocking set the call returns only after that point. A blocking call
// from a reactor thread the handler is registered on is refused, since it
// could never drain.
func (r *Registry) Deregister(h EventHandler, blocking bool, marker *Message, overflow Overflow) bool {
	b := h.handlerBase()
	// A registration still inside OnRegister counts as membership; read it
	// before the completed count so one finishing in between is not missed.
	if b.registering.Load() == 0 && b.Registrations() == 0 {
		return false
	}
	if blocking && r.onOwnReactor(b) {
		r.log.Warn(logPrefix + " - blocking deregistration from the handler's own reactor refused")
		return false
	}
	if !b.beginDeregistration() {
		return false
	}
	b.awaitRegistrations()

	ctrl := b.DeregistrationHandle()
	r.removeRoutes(b, func(hd Handle) bool { return hd != ctrl })

	switch {
	case marker == nil:
		marker = NewMessage(markerCommand, b.markerParam, WithHandle(ctrl))
	case marker.Handle() != ctrl:
		marker = marker.retarget(ctrl)
	}
	b.startMarkers(marker)
	_, queued := r.post(marker, overflow, b)
	if overflow.Contains(ctrl.CommandID, h) {
		r.log.Warn(logPrefix+" - deregistration marker overflowed", "handle", ctrl.String())
	}
	if b.finishMarkers(queued) {
		r.finalize(b)
	}
	r.count(metricDeregistrations)
	r.log.Debug(logPrefix+" - deregistration started", "markers", queued, "blocking", blocking)

	if blocking {
		b.awaitDestroyed()
	}
	return true
}

// markerArrived accounts one of b's own markers taken off rc's queue.
func (r *Registry) markerArrived(rc *Reactor, h EventHandler) {
	b := h.handlerBase()
	ctrl := b.DeregistrationHandle()

	r.mainMu.Lock()
	r.dropRoute(ctrl, rc.id, b)
	r.mainMu.Unlock()

	if b.consumeMarker() {
		r.finalize(b)
	}
}

// finalize removes whatever routes remain and marks b removed.
func (r *Registry) finalize(b *HandlerBase) {
	r.removeRoutes(b, func(Handle) bool { return true })
	b.markRemoved()
	r.log.Debug(logPrefix+" - handler removed", "in_flight", b.InFlight())
}

// removeRoutes drops every route of b whose Handle passes match.
func (r *Registry) removeRoutes(b *HandlerBase, match func(Handle) bool) {
	r.mainMu.Lock()
	defer r.mainMu.Unlock()
	for hd, byReactor := range r.routes {
		if !match(hd) {
			continue
		}
		for id := range byReactor {
			r.dropRoute(hd, id, b)
		}
	}
}

// dropRoute removes b from routes[hd][id]. Callers hold mainMu.
func (r *Registry) dropRoute(hd Handle, id ReactorID, b *HandlerBase) {
	byReactor := r.routes[hd]
	set := byReactor[id]
	if _, ok := set[b]; !ok {
		return
	}
	delete(set, b)
	if r.members[id]--; r.members[id] <= 0 {
		delete(r.members, id)
	}
	if len(set) == 0 {
		delete(byReactor, id)
	}
	if len(byReactor) == 0 {
		delete(r.routes, hd)
	}
}

// onOwnReactor reports whether the calling thread's reactor routes events
// to b.
func (r *Registry) onOwnReactor(b *HandlerBase) bool {
	rc := r.reactorOf(concurrency.CurrentThreadID())
	if rc == nil {
		return false
	}
	r.mainMu.RLock()
	defer r.mainMu.RUnlock()
	for _, byReactor := range r.routes {
		if _, ok := byReactor[rc.id][b]; ok {
			return true
		}
	}
	return false
}
