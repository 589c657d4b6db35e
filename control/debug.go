// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Runtime debug probes and a YAML rendering of their state.

package control

import (
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-dispatch/api"
)

var _ api.Debug = (*DebugProbes)(nil)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named debug hook.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// DumpState returns output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	fns := make(map[string]func() any, len(dp.probes))
	for k, fn := range dp.probes {
		fns[k] = fn
	}
	dp.mu.RUnlock()

	out := make(map[string]any, len(fns))
	for k, fn := range fns {
		out[k] = fn()
	}
	return out
}

// DumpYAML renders DumpState as YAML with keys sorted.
func (dp *DebugProbes) DumpYAML() (string, error) {
	b, err := yaml.Marshal(dp.DumpState())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// RegisterPlatformProbes adds runtime-level probes.
func RegisterPlatformProbes(dp api.Debug) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.goroutines", func() any {
		return runtime.NumGoroutine()
	})
}
