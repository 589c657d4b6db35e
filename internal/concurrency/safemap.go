// File: internal/concurrency/safemap.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SafeMap is an RWMutex-guarded key/value map for small shared tables
// such as thread-to-reactor bindings.

package concurrency

import "sync"

// SafeMap is a thread-safe map. The zero value is not usable; use NewSafeMap.
type SafeMap[K comparable, V any] struct {
	mu    sync.RWMutex
	store map[K]V
}

// NewSafeMap creates an empty map.
func NewSafeMap[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{store: make(map[K]V)}
}

// Read looks up key.
func (m *SafeMap[K, V]) Read(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.store[key]
	return v, ok
}

// Write stores value under key, replacing any previous value.
func (m *SafeMap[K, V]) Write(key K, value V) {
	m.mu.Lock()
	m.store[key] = value
	m.mu.Unlock()
}

// Delete removes key and reports whether it was present.
func (m *SafeMap[K, V]) Delete(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.store[key]
	delete(m.store, key)
	return ok
}

// Len returns the number of entries.
func (m *SafeMap[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}

// Range calls fn for every entry under the read lock until fn returns false.
// fn must not modify the map.
func (m *SafeMap[K, V]) Range(fn func(K, V) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, v := range m.store {
		if !fn(k, v) {
			return
		}
	}
}
