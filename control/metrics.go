// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for dispatch counters.
// Counters are atomic; gauges set with Set live in a guarded map.

package control

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricsRegistry holds counters and arbitrary gauge values.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]*atomic.Int64
	metrics  map[string]any
	updated  time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]*atomic.Int64),
		metrics:  make(map[string]any),
	}
}

// Add increments counter key by delta, creating it on first use.
func (mr *MetricsRegistry) Add(key string, delta int64) {
	mr.mu.RLock()
	c, ok := mr.counters[key]
	mr.mu.RUnlock()
	if !ok {
		mr.mu.Lock()
		if c, ok = mr.counters[key]; !ok {
			c = new(atomic.Int64)
			mr.counters[key] = c
		}
		mr.mu.Unlock()
	}
	c.Add(delta)
}

// Counter returns the current value of counter key.
func (mr *MetricsRegistry) Counter(key string) int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	if c, ok := mr.counters[key]; ok {
		return c.Load()
	}
	return 0
}

// Set sets or updates a gauge key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// GetSnapshot returns counters and gauges in one map.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics)+len(mr.counters))
	for k, v := range mr.metrics {
		out[k] = v
	}
	for k, c := range mr.counters {
		out[k] = c.Load()
	}
	return out
}

// Updated returns the time of the last Set.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}
