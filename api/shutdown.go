// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown is implemented by components that own reactors, workers
// or other goroutines and must release them before process exit.
type GracefulShutdown interface {
	// Shutdown stops owned goroutines and reports the first failure.
	Shutdown() error
}
