package reactor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting on channel")
	}
	var zero T
	return zero
}

// recorder keeps every message it receives and optionally runs fn after
// recording.
type recorder struct {
	HandlerBase

	mu  sync.Mutex
	got []*Message
	fn  func(*Message)

	onRegister func(n int32)
	registered atomic.Int32
}

func newRecorder(handles ...Handle) *recorder {
	r := &recorder{}
	for _, h := range handles {
		r.AddHandle(h)
	}
	return r
}

func (r *recorder) OnRegister() {
	n := r.registered.Add(1)
	if r.onRegister != nil {
		r.onRegister(n)
	}
}

func (r *recorder) HandleEvent(m *Message) {
	r.mu.Lock()
	r.got = append(r.got, m)
	fn := r.fn
	r.mu.Unlock()
	if fn != nil {
		fn(m)
	}
}

func (r *recorder) messages() []*Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Message(nil), r.got...)
}

func (r *recorder) count() int {
	return len(r.messages())
}

// worker is a self-deregistering handler as applications write them.
type worker struct {
	*DeregisterableHandler
	got atomic.Int32
	fn  func(*Message)
}

func newWorker(reg *Registry, opts ...DeregisterableOption) *worker {
	return &worker{DeregisterableHandler: NewDeregisterableHandler(reg, opts...)}
}

func (w *worker) HandleEvent(m *Message) {
	w.got.Add(1)
	if w.fn != nil {
		w.fn(m)
	}
}

// executor runs closures on a reactor thread.
type executor struct {
	HandlerBase
	reg    *Registry
	handle Handle
}

func newExecutor(t *testing.T, reg *Registry, l *Loop) *executor {
	t.Helper()
	e := &executor{reg: reg, handle: HandleOf("exec", uuid.NewString())}
	e.AddHandle(e.handle)
	if !reg.RegisterOnThread(e, l.Thread()) {
		t.Fatal("executor registration failed")
	}
	return e
}

func (e *executor) HandleEvent(m *Message) {
	m.Payload().(func())()
}

// run executes fn on the reactor and waits for it to return.
func (e *executor) run(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	if !e.reg.Post(NewMessage("exec", "", WithHandle(e.handle), WithPayload(func() {
		defer close(done)
		fn()
	})), nil) {
		t.Fatal("exec post found no subscriber")
	}
	recv(t, done)
}

func startLoop(t *testing.T, reg *Registry, kind ReactorKind) *Loop {
	t.Helper()
	l := reg.Start(kind)
	t.Cleanup(func() {
		reg.ShutdownThread(l.Thread())
		<-l.Done()
	})
	return l
}
