// File: reactor/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Registry is the routing table and the registration, posting and reactor
// lifecycle authority. One instance is meant to serve a whole process; it is
// constructed explicitly and passed to whatever needs it.
//
// Lock order: reactorsMu before mainMu. Neither is held while a handler
// callback, a kind's AuxInit or a queue push runs.

package reactor

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-dispatch/api"
	"github.com/momentics/hioload-dispatch/control"
	"github.com/momentics/hioload-dispatch/internal/concurrency"
)

const logPrefix = "reactor:registry"

// ThreadID identifies the OS thread a reactor is bound to.
type ThreadID = concurrency.ThreadID

// Metric keys maintained in the injected MetricsRegistry.
const (
	metricPosts            = "posts"
	metricDeliveries       = "deliveries"
	metricOverflows        = "overflows"
	metricUnroutable       = "unroutable"
	metricRegistrations    = "registrations"
	metricRejected         = "registrations_rejected"
	metricDeregistrations  = "deregistrations"
	metricDropped          = "dropped"
	metricPanics           = "panics"
	metricRequeueLost      = "requeue_lost"
	metricReactorsCreated  = "reactors_created"
	metricReactorsShutdown = "reactors_shutdown"
)

// RegisterContinuation is implemented by handlers that want a callback
// right after their routes have been added.
type RegisterContinuation interface {
	OnRegisterContinuation()
}

type config struct {
	queueCapacity     int
	targetMarkerMatch bool
	waitBackoffMax    time.Duration
}

// Option configures a Registry.
type Option func(*Registry)

// WithQueueCapacity bounds every reactor queue created afterwards.
func WithQueueCapacity(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.cfg.queueCapacity = n
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetrics enables dispatch counters.
func WithMetrics(m *control.MetricsRegistry) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithTargetMarkerMatch selects how a reentrant wait treats events of
// another deregistering handler. When false (default) such an event is kept
// only if it carries the waiting handler's marker Handle; when true, only if
// it carries its own handler's marker Handle.
func WithTargetMarkerMatch(on bool) Option {
	return func(r *Registry) {
		r.cfg.targetMarkerMatch = on
	}
}

// WithWaitBackoff caps the sleep a reentrant wait uses once it keeps
// cycling through events it cannot consume. Zero means yield only.
func WithWaitBackoff(max time.Duration) Option {
	return func(r *Registry) {
		if max >= 0 {
			r.cfg.waitBackoffMax = max
		}
	}
}

type route = map[*HandlerBase]EventHandler

// Registry maps Handle -> reactor -> handlers and binds threads to reactors.
type Registry struct {
	cfg     config
	log     *slog.Logger
	metrics *control.MetricsRegistry

	reactorsMu sync.RWMutex
	reactors   []*Reactor // nil is a free slot

	mainMu  sync.RWMutex
	routes  map[Handle]map[ReactorID]route
	members map[ReactorID]int // route entries per reactor

	threads *concurrency.SafeMap[ThreadID, ReactorID]
	live    atomic.Int32
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		cfg: config{
			queueCapacity:  DefaultQueueCapacity,
			waitBackoffMax: time.Millisecond,
		},
		log:     control.DiscardLogger(),
		routes:  make(map[Handle]map[ReactorID]route),
		members: make(map[ReactorID]int),
		threads: concurrency.NewSafeMap[ThreadID, ReactorID](),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) count(key string) {
	if r.metrics != nil {
		r.metrics.Add(key, 1)
	}
}

// reactorOf returns the reactor bound to tid.
func (r *Registry) reactorOf(tid ThreadID) *Reactor {
	id, ok := r.threads.Read(tid)
	if !ok {
		return nil
	}
	r.reactorsMu.RLock()
	defer r.reactorsMu.RUnlock()
	if int(id) >= len(r.reactors) {
		return nil
	}
	return r.reactors[id]
}

// Current returns the reactor bound to the calling thread, or nil.
func (r *Registry) Current() *Reactor {
	return r.reactorOf(concurrency.CurrentThreadID())
}

// currentReactor resolves the calling thread's reactor, creating one of the
// given kind if the thread has none. With lock set, a goroutine that is not
// yet a reactor thread gets wired to its OS thread first.
func (r *Registry) currentReactor(kind ReactorKind, lock bool) *Reactor {
	if rc := r.Current(); rc != nil {
		return rc
	}
	var tid ThreadID
	if lock {
		tid = concurrency.LockThread()
	} else {
		tid = concurrency.CurrentThreadID()
	}
	if kind == nil {
		kind = PlainKind{}
	}
	rc, created := r.bindThread(tid, kind)
	switch {
	case lock && created:
		rc.wired.Store(true)
	case lock:
		concurrency.UnlockThread()
	}
	if created {
		kind.AuxInit(r, rc)
	}
	return rc
}

// bindThread returns the reactor for tid, allocating a slot if needed.
func (r *Registry) bindThread(tid ThreadID, kind ReactorKind) (*Reactor, bool) {
	r.reactorsMu.Lock()
	defer r.reactorsMu.Unlock()
	if id, ok := r.threads.Read(tid); ok && r.reactors[id] != nil {
		return r.reactors[id], false
	}

	id := ReactorID(len(r.reactors))
	r.mainMu.RLock()
	for i, old := range r.reactors {
		if old == nil || (old.Exited() && r.members[ReactorID(i)] == 0) {
			id = ReactorID(i)
			break
		}
	}
	r.mainMu.RUnlock()

	rc := newReactor(r, id, tid, kind, r.cfg.queueCapacity)
	if int(id) == len(r.reactors) {
		r.reactors = append(r.reactors, rc)
	} else {
		r.reactors[id] = rc
	}
	r.threads.Write(tid, id)
	r.count(metricReactorsCreated)
	r.log.Debug(logPrefix+" - reactor created", "reactor", id, "thread", tid)
	return rc, true
}

// Register subscribes h on the calling thread's reactor, creating a plain
// one if the thread has none. In that case the calling goroutine stays
// wired to its OS thread until it calls Shutdown, and it must call Run or
// Shutdown before exiting: the thread binding outlives the goroutine and
// the OS may hand the same thread id to a later thread.
func (r *Registry) Register(h EventHandler) bool {
	return r.RegisterWithKind(h, PlainKind{})
}

// RegisterWithKind is Register with the kind used if a reactor has to be
// created. The kind's AuxInit runs before h is added.
func (r *Registry) RegisterWithKind(h EventHandler, kind ReactorKind) bool {
	return r.register(h, func() *Reactor {
		return r.currentReactor(kind, true)
	})
}

// RegisterOnThread subscribes h on the reactor bound to tid. It fails if tid
// has no reactor.
func (r *Registry) RegisterOnThread(h EventHandler, tid ThreadID) bool {
	return r.register(h, func() *Reactor {
		return r.reactorOf(tid)
	})
}

func (r *Registry) register(h EventHandler, resolve func() *Reactor) bool {
	b := h.handlerBase()
	if !b.enterRegistration() {
		r.count(metricRejected)
		return false
	}
	defer b.leaveRegistration()

	rc := resolve()
	if rc == nil || rc.Exited() {
		r.count(metricRejected)
		return false
	}
	r.registerOnReactor(h, rc)
	return true
}

func (r *Registry) registerOnReactor(h EventHandler, rc *Reactor) {
	b := h.handlerBase()
	h.OnRegister()
	handles := h.Handles()

	r.mainMu.Lock()
	for _, hd := range handles {
		byReactor, ok := r.routes[hd]
		if !ok {
			byReactor = make(map[ReactorID]route)
			r.routes[hd] = byReactor
		}
		set, ok := byReactor[rc.id]
		if !ok {
			set = make(route)
			byReactor[rc.id] = set
		}
		if _, dup := set[b]; !dup {
			set[b] = h
			r.members[rc.id]++
		}
	}
	r.mainMu.Unlock()

	b.bind(r, h)
	r.count(metricRegistrations)
	r.log.Debug(logPrefix+" - handler registered", "reactor", rc.id, "handles", len(handles))

	if c, ok := h.(RegisterContinuation); ok {
		c.OnRegisterContinuation()
	}
}

type target struct {
	rc *Reactor
	h  EventHandler
}

// lookup snapshots the (reactor, handler) pairs subscribed to hd.
func (r *Registry) lookup(hd Handle) []target {
	r.reactorsMu.RLock()
	defer r.reactorsMu.RUnlock()
	r.mainMu.RLock()
	defer r.mainMu.RUnlock()

	byReactor := r.routes[hd]
	if len(byReactor) == 0 {
		return nil
	}
	out := make([]target, 0, len(byReactor))
	for id, set := range byReactor {
		rc := r.reactors[id]
		if rc == nil {
			continue
		}
		for _, h := range set {
			out = append(out, target{rc: rc, h: h})
		}
	}
	return out
}

// Post enqueues msg once per subscribed handler on that handler's reactor.
// Rejected enqueues are recorded into overflow under msg.Handle().CommandID.
// It reports whether the Handle had any subscriber at all.
func (r *Registry) Post(msg *Message, overflow Overflow) bool {
	ok, _ := r.post(msg, overflow, nil)
	return ok
}

// post returns the subscriber flag and how many copies were queued for track.
func (r *Registry) post(msg *Message, overflow Overflow, track *HandlerBase) (bool, int) {
	r.count(metricPosts)
	targets := r.lookup(msg.Handle())
	if len(targets) == 0 {
		r.count(metricUnroutable)
		return false, 0
	}
	queued := 0
	for _, t := range targets {
		if t.rc.addEvent(t.h, msg) {
			r.count(metricDeliveries)
			if t.h.handlerBase() == track {
				queued++
			}
			continue
		}
		overflow.add(msg.Handle().CommandID, t.h)
		r.count(metricOverflows)
	}
	return true, queued
}

// IsHandlerRegistered reports whether h currently holds a route for hd on
// any reactor.
func (r *Registry) IsHandlerRegistered(h EventHandler, hd Handle) bool {
	b := h.handlerBase()
	r.mainMu.RLock()
	defer r.mainMu.RUnlock()
	for _, set := range r.routes[hd] {
		if _, ok := set[b]; ok {
			return true
		}
	}
	return false
}

// WaitInLoop blocks the calling callback until an event for h carrying hd
// arrives on the same reactor, serving the rest of the queue meanwhile.
// It must be called from inside a callback. It returns nil if the caller is
// not a reactor thread, h is not subscribed to hd, another wait is already
// active on this reactor or the reactor is exiting.
func (r *Registry) WaitInLoop(h EventHandler, hd Handle) *Message {
	rc := r.Current()
	if rc == nil {
		return nil
	}
	return rc.waitInLoop(h, hd)
}

// Shutdown stops the calling thread's reactor and drops its thread binding.
// Handler routes are left in place. A goroutine wired by Register is
// released from its OS thread.
func (r *Registry) Shutdown() bool {
	rc := r.Current()
	if !r.ShutdownThread(concurrency.CurrentThreadID()) {
		return false
	}
	if rc != nil && rc.wired.CompareAndSwap(true, false) {
		concurrency.UnlockThread()
	}
	return true
}

// ShutdownThread is Shutdown for the reactor bound to tid.
func (r *Registry) ShutdownThread(tid ThreadID) bool {
	r.reactorsMu.Lock()
	id, ok := r.threads.Read(tid)
	if !ok {
		r.reactorsMu.Unlock()
		return false
	}
	r.threads.Delete(tid)
	rc := r.reactors[id]
	r.reactorsMu.Unlock()

	rc.requestExit()
	r.count(metricReactorsShutdown)
	r.log.Debug(logPrefix+" - reactor shut down", "reactor", id, "thread", tid)
	return true
}

// Run turns the calling goroutine into a reactor thread and serves events
// until the reactor is shut down. The live reactor count covers the call.
func (r *Registry) Run(kind ReactorKind) {
	r.run(kind, nil)
}

func (r *Registry) run(kind ReactorKind, ready func(*Reactor)) {
	concurrency.LockThread()
	defer concurrency.UnlockThread()

	r.live.Add(1)
	defer r.live.Add(-1)

	rc := r.currentReactor(kind, false)
	if ready != nil {
		ready(rc)
	}
	rc.run()
}

// Loop is a reactor served by its own goroutine.
type Loop struct {
	reg     *Registry
	reactor *Reactor
	done    chan struct{}
}

// Start runs a reactor of the given kind on a new goroutine and returns
// once the reactor is bound and its AuxInit has finished.
func (r *Registry) Start(kind ReactorKind) *Loop {
	l := &Loop{reg: r, done: make(chan struct{})}
	ready := make(chan *Reactor, 1)
	go func() {
		defer close(l.done)
		r.run(kind, func(rc *Reactor) { ready <- rc })
	}()
	l.reactor = <-ready
	return l
}

func (l *Loop) Reactor() *Reactor     { return l.reactor }
func (l *Loop) Thread() ThreadID      { return l.reactor.Thread() }
func (l *Loop) Done() <-chan struct{} { return l.done }

// Stop shuts the reactor down and waits for its goroutine to return.
// Must not be called from the loop's own thread.
func (l *Loop) Stop() {
	l.reg.ShutdownThread(l.Thread())
	<-l.done
}

// AllReactorsStopped reports whether no Run call is in progress.
func (r *Registry) AllReactorsStopped() bool {
	return r.live.Load() == 0
}

// Stats is a diagnostic snapshot.
type Stats struct {
	Handles      int `yaml:"handles"`
	Reactors     int `yaml:"reactors"`
	Threads      int `yaml:"threads"`
	LiveReactors int `yaml:"live_reactors"`
}

func (r *Registry) Stats() Stats {
	r.reactorsMu.RLock()
	reactors := 0
	for _, rc := range r.reactors {
		if rc != nil && !rc.Exited() {
			reactors++
		}
	}
	r.reactorsMu.RUnlock()

	r.mainMu.RLock()
	handles := len(r.routes)
	r.mainMu.RUnlock()

	return Stats{
		Handles:      handles,
		Reactors:     reactors,
		Threads:      r.threads.Len(),
		LiveReactors: int(r.live.Load()),
	}
}

// DebugInfo renders Stats as one line of text.
func (r *Registry) DebugInfo() string {
	s := r.Stats()
	return fmt.Sprintf("handles=%d reactors=%d threads=%d live=%d",
		s.Handles, s.Reactors, s.Threads, s.LiveReactors)
}

// RegisterProbes publishes registry counts through d.
func (r *Registry) RegisterProbes(d api.Debug) {
	d.RegisterProbe("dispatch.handles", func() any { return r.Stats().Handles })
	d.RegisterProbe("dispatch.reactors", func() any { return r.Stats().Reactors })
	d.RegisterProbe("dispatch.threads", func() any { return r.Stats().Threads })
	d.RegisterProbe("dispatch.live_reactors", func() any { return r.Stats().LiveReactors })
}
