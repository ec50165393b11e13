package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the metric name prefix, "vaep" by default.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem sets the subsystem of the engine, queue, worker and store
// metrics. HTTP and system metrics keep their own subsystems.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithLatencyBuckets sets the millisecond buckets of the rating, worker,
// store and GC latency histograms.
func WithLatencyBuckets(ms []float64) Option {
	return func(m *Manager) {
		if len(ms) > 0 {
			m.latencyBuckets = ms
		}
	}
}

// WithHTTPBuckets sets the second buckets of the HTTP request histogram.
func WithHTTPBuckets(seconds []float64) Option {
	return func(m *Manager) {
		if len(seconds) > 0 {
			m.httpBuckets = seconds
		}
	}
}

// WithDisabled turns every Record and Update call into a no-op. Metrics are
// still registered so the exposition stays stable.
func WithDisabled() Option {
	return func(m *Manager) { m.enabled = false }
}

// WithRefreshInterval sets how often callers should refresh system gauges.
func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.refreshInterval = interval
		}
	}
}

// WithPrometheusRegistry registers the metrics on registry instead of the
// default registerer.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}
