// File: facade/dispatch.go
// Unified facade layer for hioload-dispatch.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// HioloadDispatch aggregates the dispatch core and its surroundings behind a
// single type: the Registry, a set of stoppable reactors, the application
// worker pool, metrics, debug probes and the logger, all built from one
// immutable control.Config.

package facade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-dispatch/api"
	"github.com/momentics/hioload-dispatch/control"
	"github.com/momentics/hioload-dispatch/internal/concurrency"
	"github.com/momentics/hioload-dispatch/reactor"
)

const logPrefix = "facade"

// ErrShutdownTimeout is returned when reactors did not stop in time.
var ErrShutdownTimeout = errors.New("reactors did not stop before the shutdown timeout")

// HioloadDispatch is the main facade type.
type HioloadDispatch struct {
	config   *control.Config
	log      *slog.Logger
	metrics  *control.MetricsRegistry
	debug    *control.DebugProbes
	registry *reactor.Registry
	pool     *concurrency.ThreadPool

	mu      sync.Mutex
	loops   []*reactor.Loop
	started bool
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*HioloadDispatch)(nil)

// New wires every component from cfg. A nil cfg means control.DefaultConfig.
func New(cfg *control.Config) (*HioloadDispatch, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	h := &HioloadDispatch{
		config: cfg,
		log:    control.NewLogger(cfg.LogLevel, os.Stderr),
		debug:  control.NewDebugProbes(),
	}

	opts := []reactor.Option{
		reactor.WithQueueCapacity(cfg.QueueCapacity),
		reactor.WithLogger(h.log),
		reactor.WithTargetMarkerMatch(cfg.TargetMarkerMatch),
		reactor.WithWaitBackoff(cfg.WaitBackoffMax),
	}
	if cfg.Metrics {
		h.metrics = control.NewMetricsRegistry()
		opts = append(opts, reactor.WithMetrics(h.metrics))
		h.debug.RegisterProbe("metrics", func() any { return h.metrics.GetSnapshot() })
	}
	h.registry = reactor.New(opts...)
	h.pool = concurrency.NewThreadPool(cfg.Workers, cfg.PoolQueue)

	h.registry.RegisterProbes(h.debug)
	control.RegisterPlatformProbes(h.debug)
	h.debug.RegisterProbe("pool", func() any { return h.pool.Executor().Stats() })
	return h, nil
}

// Start launches config.Reactors stoppable reactors. Subsequent calls have
// no effect.
func (h *HioloadDispatch) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}
	loops := make([]*reactor.Loop, h.config.Reactors)
	var g errgroup.Group
	for i := range loops {
		g.Go(func() error {
			loops[i] = h.registry.Start(reactor.StoppableKind{})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	h.loops = loops
	h.started = true
	h.log.Info(logPrefix+" - started", "reactors", len(loops), "workers", h.pool.Size())
	return nil
}

// Stop broadcasts the stop message and waits up to config.ShutdownTimeout
// for every reactor. Reactors still running after that are shut down
// forcibly and ErrShutdownTimeout is returned. The worker pool is closed in
// every case.
func (h *HioloadDispatch) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return nil
	}
	h.started = false
	defer h.pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.ShutdownTimeout)
	defer cancel()

	h.registry.PostStopAll()
	g, ctx := errgroup.WithContext(ctx)
	for _, l := range h.loops {
		g.Go(func() error {
			select {
			case <-l.Done():
				return nil
			case <-ctx.Done():
				h.registry.ShutdownThread(l.Thread())
				return fmt.Errorf("%s - thread %d: %w", logPrefix, l.Thread(), ErrShutdownTimeout)
			}
		})
	}
	err := g.Wait()
	h.loops = nil
	if err != nil {
		h.log.Warn(logPrefix+" - stop incomplete", "err", err)
		return err
	}
	h.log.Info(logPrefix + " - stopped")
	return nil
}

// Shutdown implements api.GracefulShutdown by delegating to Stop().
func (h *HioloadDispatch) Shutdown() error {
	return h.Stop()
}

// Submit dispatches a task to the worker pool.
func (h *HioloadDispatch) Submit(task func()) error {
	return h.pool.Submit(task)
}

// Threads returns the threads of the reactors started by Start.
func (h *HioloadDispatch) Threads() []reactor.ThreadID {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]reactor.ThreadID, len(h.loops))
	for i, l := range h.loops {
		out[i] = l.Thread()
	}
	return out
}

func (h *HioloadDispatch) Registry() *reactor.Registry { return h.registry }

func (h *HioloadDispatch) Logger() *slog.Logger { return h.log }

// Metrics returns nil when metrics are disabled.
func (h *HioloadDispatch) Metrics() *control.MetricsRegistry { return h.metrics }

// GetDebugAPI exposes the probe registry.
func (h *HioloadDispatch) GetDebugAPI() api.Debug { return h.debug }

// DumpState renders every probe as YAML.
func (h *HioloadDispatch) DumpState() (string, error) {
	return h.debug.DumpYAML()
}
