// Package config defines service configuration and its loading.
//
// Values are layered: defaults from New, then an optional YAML file named
// by VAEP_CONFIG, then VAEP_* environment variables.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/okian/vaep/internal/domain/labels"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogDevelopment switches to the human-readable console encoder.
	LogDevelopment bool `koanf:"log_development"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory job queue (one job per game).
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of rating workers.
	WorkerCount int `koanf:"worker_count"`

	// NrActions is the count horizon of the scores/concedes labels.
	NrActions int `koanf:"nr_actions"`

	// NrSeconds is the time bound of the timed labels.
	NrSeconds float64 `koanf:"nr_seconds"`

	// PrecheckActions is the count pre-check of the timed labels.
	PrecheckActions int `koanf:"precheck_actions"`

	// ResultsDSN selects the result store: empty keeps results in memory,
	// anything else is a SQLite file path or DSN.
	ResultsDSN string `koanf:"results_dsn"`

	// MaxStoredGames bounds the in-memory result store. Zero keeps every
	// game. Ignored when ResultsDSN is set.
	MaxStoredGames int `koanf:"max_stored_games"`

	// MaxBodyBytes caps HTTP request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// MetricsEnabled turns metric recording on. The exposition stays
	// available either way.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsRefreshInterval is how often runtime gauges are sampled.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		QueueSize:       1_024,
		WorkerCount:     runtime.NumCPU(),
		NrActions:       labels.DefaultNrActions,
		NrSeconds:       labels.DefaultNrSeconds,
		PrecheckActions: labels.DefaultPrecheckActions,
		MaxStoredGames:  10_000,
		MaxBodyBytes:    32 << 20,

		MetricsEnabled:         true,
		MetricsRefreshInterval: 10 * time.Second,
	}
}

// LabelOptions returns the label horizons as engine options.
func (c *Config) LabelOptions() []labels.Option {
	return []labels.Option{
		labels.WithNrActions(c.NrActions),
		labels.WithNrSeconds(c.NrSeconds),
		labels.WithPrecheckActions(c.PrecheckActions),
	}
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.MaxStoredGames < 0:
		return fmt.Errorf("%w: max_stored_games must not be negative, got %d", ErrInvalidConfig, c.MaxStoredGames)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("%w: max_body_bytes must be positive, got %d", ErrInvalidConfig, c.MaxBodyBytes)
	case c.MetricsRefreshInterval <= 0:
		return fmt.Errorf("%w: metrics_refresh_interval must be positive, got %s", ErrInvalidConfig, c.MetricsRefreshInterval)
	}
	if err := labels.NewConfig(c.LabelOptions()...).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
