// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Process configuration loaded from DISPATCH_* environment variables.

package control

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "control:config"

// EnvPrefix is the environment variable prefix consumed by LoadConfig.
const EnvPrefix = "DISPATCH"

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds dispatcher tuning knobs.
type Config struct {
	// Maximum pending events per reactor queue.
	QueueCapacity int `envconfig:"QUEUE_CAPACITY" default:"100000"`

	// Application worker pool; 0 means one worker per CPU.
	Workers   int `envconfig:"WORKERS" default:"0"`
	PoolQueue int `envconfig:"POOL_QUEUE" default:"1024"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// TargetMarkerMatch makes the reentrant wait keep another deregistering
	// handler's events only when they carry that handler's own marker Handle.
	// When false the waiting handler's marker Handle is compared instead.
	TargetMarkerMatch bool `envconfig:"TARGET_MARKER_MATCH" default:"false"`

	// Upper bound for the sleep between re-queue cycles inside a reentrant wait.
	WaitBackoffMax time.Duration `envconfig:"WAIT_BACKOFF_MAX" default:"1ms"`

	Metrics bool `envconfig:"METRICS" default:"true"`

	// Process wiring: stoppable reactors started by the facade and how long
	// Shutdown waits for them.
	Reactors        int           `envconfig:"REACTORS" default:"1"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// DefaultConfig returns the values LoadConfig yields with an empty environment.
func DefaultConfig() *Config {
	return &Config{
		QueueCapacity:   100000,
		PoolQueue:       1024,
		LogLevel:        "info",
		WaitBackoffMax:  time.Millisecond,
		Metrics:         true,
		Reactors:        1,
		ShutdownTimeout: 5 * time.Second,
	}
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("%s - DISPATCH_QUEUE_CAPACITY must be positive: %w", logPrefix, ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%s - DISPATCH_WORKERS must not be negative: %w", logPrefix, ErrInvalidConfig)
	}
	if c.PoolQueue <= 0 {
		return fmt.Errorf("%s - DISPATCH_POOL_QUEUE must be positive: %w", logPrefix, ErrInvalidConfig)
	}
	if c.WaitBackoffMax < 0 {
		return fmt.Errorf("%s - DISPATCH_WAIT_BACKOFF_MAX must not be negative: %w", logPrefix, ErrInvalidConfig)
	}
	if c.Reactors < 0 {
		return fmt.Errorf("%s - DISPATCH_REACTORS must not be negative: %w", logPrefix, ErrInvalidConfig)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%s - DISPATCH_SHUTDOWN_TIMEOUT must be positive: %w", logPrefix, ErrInvalidConfig)
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%s - unknown DISPATCH_LOG_LEVEL %q: %w", logPrefix, c.LogLevel, ErrInvalidConfig)
	}
	return nil
}
