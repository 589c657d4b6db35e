package facade_test

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/momentics/hioload-dispatch/control"
	"github.com/momentics/hioload-dispatch/facade"
	"github.com/momentics/hioload-dispatch/reactor"
)

type counter struct {
	reactor.HandlerBase
	n     atomic.Int32
	block chan struct{}
}

func (c *counter) HandleEvent(*reactor.Message) {
	c.n.Add(1)
	if c.block != nil {
		<-c.block
	}
}

func testConfig() *control.Config {
	cfg := control.DefaultConfig()
	cfg.LogLevel = "error"
	cfg.Reactors = 2
	cfg.Workers = 2
	return cfg
}

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

// Test the full lifecycle: start, registration, posting from the pool,
// debug dump and stop.
func TestHioloadDispatchFullLifecycle(t *testing.T) {
	h, err := facade.New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	threads := h.Threads()
	if len(threads) != 2 {
		t.Fatalf("started %d reactors, want 2", len(threads))
	}

	c := &counter{}
	c.AddHandle(reactor.HandleOf("tick", ""))
	for _, tid := range threads {
		if !h.Registry().RegisterOnThread(c, tid) {
			t.Fatal("registration failed")
		}
	}
	if err := h.Submit(func() { h.Registry().Post(reactor.NewMessage("tick", ""), nil) }); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return c.n.Load() == 2 })

	dump, err := h.DumpState()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dump, "dispatch.reactors: 2") {
		t.Errorf("dump missing reactor probe:\n%s", dump)
	}
	if h.Metrics().Counter("deliveries") != 2 {
		t.Errorf("deliveries = %d", h.Metrics().Counter("deliveries"))
	}

	if err := h.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if !h.Registry().AllReactorsStopped() {
		t.Error("reactors still running after Shutdown")
	}
	if err := h.Submit(func() {}); err == nil {
		t.Error("pool accepted work after Shutdown")
	}
	if err := h.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestHioloadDispatchStopTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Reactors = 1
	cfg.ShutdownTimeout = 30 * time.Millisecond
	h, err := facade.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Start(); err != nil {
		t.Fatal(err)
	}
	c := &counter{block: make(chan struct{})}
	defer close(c.block)
	c.AddHandle(reactor.HandleOf("stall", ""))
	h.Registry().RegisterOnThread(c, h.Threads()[0])
	h.Registry().Post(reactor.NewMessage("stall", ""), nil)
	waitFor(t, func() bool { return c.n.Load() == 1 })

	if err := h.Stop(); !errors.Is(err, facade.ErrShutdownTimeout) {
		t.Fatalf("Stop = %v, want ErrShutdownTimeout", err)
	}
	if h.Registry().Stats().Threads != 0 {
		t.Error("stalled reactor kept its binding")
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := control.DefaultConfig()
	cfg.QueueCapacity = 0
	if _, err := facade.New(cfg); !errors.Is(err, control.ErrInvalidConfig) {
		t.Fatalf("New = %v, want ErrInvalidConfig", err)
	}
}
