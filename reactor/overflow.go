// File: reactor/overflow.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-call sink for deliveries rejected by a full reactor queue.

package reactor

// Overflow collects, per command identifier, the handlers a post could not
// reach. All parameter variants of one command share a bucket. Handlers are
// keyed by their HandlerBase, so value types that are not comparable work
// too. A nil Overflow discards reports.
type Overflow map[uint64]route

func (o Overflow) add(commandID uint64, h EventHandler) {
	if o == nil {
		return
	}
	set, ok := o[commandID]
	if !ok {
		set = make(route)
		o[commandID] = set
	}
	set[h.handlerBase()] = h
}

// Contains reports whether h missed a message of commandID.
func (o Overflow) Contains(commandID uint64, h EventHandler) bool {
	_, ok := o[commandID][h.handlerBase()]
	return ok
}

// Handlers lists the handlers that missed a message of commandID.
func (o Overflow) Handlers(commandID uint64) []EventHandler {
	set := o[commandID]
	out := make([]EventHandler, 0, len(set))
	for _, h := range set {
		out = append(out, h)
	}
	return out
}

// Count returns the number of (command, handler) entries.
func (o Overflow) Count() int {
	n := 0
	for _, set := range o {
		n += len(set)
	}
	return n
}
