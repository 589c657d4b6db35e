// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, logging, metrics and debug introspection for hioload-dispatch.
//
// Provides concurrent-safe state handling primitives including:
//   - Environment-driven configuration with validation
//   - slog logger construction
//   - Atomic counters and gauges
//   - Named debug probes with YAML state export
package control
