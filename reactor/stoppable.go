// File: reactor/stoppable.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stoppable reactors shut themselves down on a broadcast stop message.

package reactor

const stopCommand = "ShutdownStoppableDispatchers"

// StopHandle is the Handle every stoppable reactor listens on.
var StopHandle = HandleOf(stopCommand, "")

// StoppableKind registers a stopping handler on each new reactor.
type StoppableKind struct{}

func (StoppableKind) AuxInit(reg *Registry, rc *Reactor) {
	s := &stoppingHandler{reg: reg}
	s.AddHandle(StopHandle)
	if !reg.RegisterOnThread(s, rc.Thread()) {
		reg.log.Warn(logPrefix+" - stopping handler not registered", "reactor", rc.ID())
	}
}

type stoppingHandler struct {
	HandlerBase
	reg *Registry
}

// HandleEvent runs on the reactor being stopped. The handler removes itself
// first so the slot can be reused.
func (s *stoppingHandler) HandleEvent(*Message) {
	s.reg.Deregister(s, false, nil, nil)
	s.reg.Shutdown()
}

// PostStopAll asks every stoppable reactor to shut down.
func (r *Registry) PostStopAll() bool {
	return r.Post(NewMessage(stopCommand, ""), nil)
}
