// Package metrics provides Prometheus metrics for the VAEP rating service.
package metrics

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// defaultLatencyBuckets in milliseconds; a game of a few thousand actions rates in
// well under a millisecond, a full batch can take seconds.
var defaultLatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000} //nolint:gochecknoglobals // shared bucket layout

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace       string
	subsystem       string
	latencyBuckets  []float64
	httpBuckets     []float64
	enabled         bool
	refreshInterval time.Duration
	registry        prometheus.Registerer

	// Engine
	gamesProcessed   prometheus.Counter
	gamesFailed      prometheus.Counter
	actionsLabeled   prometheus.Counter
	actionsValued    prometheus.Counter
	valuationLatency prometheus.Histogram
	validationErrors *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Result store
	storedGames        prometheus.Gauge
	storeWriteLatency  prometheus.Histogram
	storeWriteFailures prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// global pairs the package-level manager with its own registry, which keeps
// the default Go collectors out of the exposition.
type global struct {
	manager  *Manager
	registry *prometheus.Registry
}

var current atomic.Pointer[global] //nolint:gochecknoglobals // intentional global for singleton metrics manager

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	Init()
}

// Init replaces the global manager with one built from opts on a fresh
// registry. Handlers obtained from GetRegistry before the call keep
// exposing the previous registry, so call it before serving.
func Init(opts ...Option) {
	reg := prometheus.NewRegistry()
	m := NewManager(append(slices.Clip(opts), WithPrometheusRegistry(reg))...)
	current.Store(&global{manager: m, registry: reg})
}

// NewManager creates a new metrics manager. Metrics are registered on the
// default registerer unless WithPrometheusRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "vaep",
		subsystem:       "engine",
		latencyBuckets:  defaultLatencyBuckets,
		httpBuckets:     prometheus.DefBuckets,
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
		registry:        prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.latencyBuckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.gamesProcessed = m.counter("games_processed_total", "Total number of games rated successfully")
	m.gamesFailed = m.counter("games_failed_total", "Total number of games rejected or failed")
	m.actionsLabeled = m.counter("actions_labeled_total", "Total number of actions labeled")
	m.actionsValued = m.counter("actions_valued_total", "Total number of actions valued")
	m.valuationLatency = m.histogram("valuation_latency_milliseconds", "Time to rate one game in milliseconds")
	m.validationErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "validation_errors_total",
		Help:      "Rejected inputs by kind",
	}, []string{"kind"})

	m.queueSize = m.gauge("queue_size", "Jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue fill ratio between 0 and 1")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Jobs rejected by the queue")

	m.workerCount = m.gauge("worker_count", "Configured worker goroutines")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently rating a game")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Job processing time including storage")
	m.workerErrors = m.counter("worker_errors_total", "Jobs that ended in an error")

	m.storedGames = m.gauge("stored_games", "Games held by the result store")
	m.storeWriteLatency = m.histogram("store_write_latency_milliseconds", "Result store write time in milliseconds")
	m.storeWriteFailures = m.counter("store_write_failures_total", "Failed result store writes")

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   m.httpBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "HTTP error responses by endpoint and error code",
	}, []string{"endpoint", "method", "code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", Name: "memory_bytes", Help: "Heap memory in use",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", Name: "goroutines", Help: "Number of goroutines",
	})
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "system", Name: "gc_pause_milliseconds", Help: "Last GC pause in milliseconds",
		Buckets: m.latencyBuckets,
	})
}

// Enabled reports whether the manager records anything.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is how often system gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RecordGameRated counts a successfully rated game and its actions.
func (m *Manager) RecordGameRated(actions int, valued bool, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.gamesProcessed.Inc()
	m.actionsLabeled.Add(float64(actions))
	if valued {
		m.actionsValued.Add(float64(actions))
	}
	m.valuationLatency.Observe(latencyMs)
}

// RecordGameFailed counts a rejected game under the given error kind.
func (m *Manager) RecordGameFailed(kind string) {
	if !m.enabled {
		return
	}
	m.gamesFailed.Inc()
	m.validationErrors.WithLabelValues(kind).Inc()
}

// UpdateQueue sets the queue gauges.
func (m *Manager) UpdateQueue(size, capacity int) {
	if !m.enabled {
		return
	}
	m.queueSize.Set(float64(size))
	m.queueCapacity.Set(float64(capacity))
	if capacity > 0 {
		m.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// RecordQueueEnqueue counts an accepted job.
func (m *Manager) RecordQueueEnqueue() {
	if m.enabled {
		m.queueEnqueued.Inc()
	}
}

// RecordQueueDequeue counts a job handed to a worker.
func (m *Manager) RecordQueueDequeue() {
	if m.enabled {
		m.queueDequeued.Inc()
	}
}

// RecordQueueEnqueueError counts a job the queue refused.
func (m *Manager) RecordQueueEnqueueError() {
	if m.enabled {
		m.queueEnqueueErrors.Inc()
	}
}

// UpdateWorkerCount sets the configured worker gauge.
func (m *Manager) UpdateWorkerCount(n int) {
	if m.enabled {
		m.workerCount.Set(float64(n))
	}
}

// WorkerBusy adjusts the active worker gauge by delta.
func (m *Manager) WorkerBusy(delta int) {
	if m.enabled {
		m.workerActiveCount.Add(float64(delta))
	}
}

// RecordWorkerProcessing observes one job's processing time.
func (m *Manager) RecordWorkerProcessing(latencyMs float64, failed bool) {
	if !m.enabled {
		return
	}
	m.workerProcessingLatency.Observe(latencyMs)
	if failed {
		m.workerErrors.Inc()
	}
}

// RecordStoreWrite observes a result store write.
func (m *Manager) RecordStoreWrite(latencyMs float64, failed bool) {
	if !m.enabled {
		return
	}
	m.storeWriteLatency.Observe(latencyMs)
	if failed {
		m.storeWriteFailures.Inc()
	}
}

// UpdateStoredGames sets the stored games gauge.
func (m *Manager) UpdateStoredGames(n int) {
	if m.enabled {
		m.storedGames.Set(float64(n))
	}
}

// RecordHTTPRequest counts a request and observes its duration in seconds.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, seconds float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
}

// RecordHTTPError counts an error response.
func (m *Manager) RecordHTTPError(endpoint, method, code string) {
	if m.enabled {
		m.errorsByEndpoint.WithLabelValues(endpoint, method, code).Inc()
	}
}

// UpdateSystem sets the runtime gauges.
func (m *Manager) UpdateSystem(heapBytes uint64, goroutines int, lastPauseMs float64) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(heapBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
	m.systemGCPauseTime.Observe(lastPauseMs)
}

// Global convenience functions operating on the default manager.

// Default returns the global manager.
func Default() *Manager { return current.Load().manager }

// RecordGameRated records a rated game on the global manager.
func RecordGameRated(actions int, valued bool, latencyMs float64) {
	Default().RecordGameRated(actions, valued, latencyMs)
}

// RecordGameFailed records a failed game on the global manager.
func RecordGameFailed(kind string) { Default().RecordGameFailed(kind) }

// UpdateQueue sets queue gauges on the global manager.
func UpdateQueue(size, capacity int) { Default().UpdateQueue(size, capacity) }

// RecordQueueEnqueue records an enqueue on the global manager.
func RecordQueueEnqueue() { Default().RecordQueueEnqueue() }

// RecordQueueDequeue records a dequeue on the global manager.
func RecordQueueDequeue() { Default().RecordQueueDequeue() }

// RecordQueueEnqueueError records a refused enqueue on the global manager.
func RecordQueueEnqueueError() { Default().RecordQueueEnqueueError() }

// UpdateWorkerCount sets the worker gauge on the global manager.
func UpdateWorkerCount(n int) { Default().UpdateWorkerCount(n) }

// WorkerBusy adjusts the active worker gauge on the global manager.
func WorkerBusy(delta int) { Default().WorkerBusy(delta) }

// RecordWorkerProcessing records job processing on the global manager.
func RecordWorkerProcessing(latencyMs float64, failed bool) {
	Default().RecordWorkerProcessing(latencyMs, failed)
}

// RecordStoreWrite records a store write on the global manager.
func RecordStoreWrite(latencyMs float64, failed bool) { Default().RecordStoreWrite(latencyMs, failed) }

// UpdateStoredGames sets the stored games gauge on the global manager.
func UpdateStoredGames(n int) { Default().UpdateStoredGames(n) }

// RecordHTTPRequest records a request on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string, seconds float64) {
	Default().RecordHTTPRequest(endpoint, method, statusCode, seconds)
}

// RecordHTTPError records an error response on the global manager.
func RecordHTTPError(endpoint, method, code string) {
	Default().RecordHTTPError(endpoint, method, code)
}

// UpdateSystem sets runtime gauges on the global manager.
func UpdateSystem(heapBytes uint64, goroutines int, lastPauseMs float64) {
	Default().UpdateSystem(heapBytes, goroutines, lastPauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return current.Load().registry
}
