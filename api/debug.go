// Package api
// Author: momentics
//
// Live debug and introspection support for dispatch internals.

package api

// Debug exposes runtime introspection.
type Debug interface {
	// DumpState emits a snapshot of system state for diagnostics.
	DumpState() map[string]any

	// RegisterProbe dynamically registers new debug probes.
	RegisterProbe(name string, fn func() any)
}
