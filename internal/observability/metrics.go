package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreOperations counts key-value operations by backend and operation.
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opcdiary_store_operations_total",
		Help: "Total number of key-value store operations",
	}, []string{"backend", "operation"})

	// StoreErrors counts backend failures by backend and operation.
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opcdiary_store_errors_total",
		Help: "Total number of key-value store backend errors",
	}, []string{"backend", "operation"})

	// StoreQuotaRejections counts writes rejected for capacity.
	StoreQuotaRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opcdiary_store_quota_rejections_total",
		Help: "Total number of writes rejected because the store is full",
	}, []string{"backend"})

	// StoreLatency records store operation latency.
	StoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "opcdiary_store_latency_seconds",
		Help:    "Key-value store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "operation"})

	// DecodeFailures counts stored values discarded as malformed.
	DecodeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opcdiary_store_decode_failures_total",
		Help: "Total number of stored values that failed to decode",
	}, []string{"family"})

	// RedisErrors counts Redis command errors.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opcdiary_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// PollTicks counts notification poll ticks.
	PollTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opcdiary_poll_ticks_total",
		Help: "Total number of notification poll ticks",
	})

	// PollDuration records how long one scan takes.
	PollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "opcdiary_poll_duration_seconds",
		Help:    "Duration of one notification scan in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// ActivePollers is the gauge of running pollers.
	ActivePollers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opcdiary_active_pollers",
		Help: "Number of running notification pollers",
	})

	// WebSocketConnections is the gauge of open notification streams.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opcdiary_websocket_connections",
		Help: "Number of open notification WebSocket connections",
	})

	// ActiveSessions is the gauge of registered sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opcdiary_active_sessions",
		Help: "Number of registered client sessions",
	})
)

// StoreMetrics records metrics for one store backend.
type StoreMetrics struct {
	backend string
}

// NewStoreMetrics returns a StoreMetrics for the named backend.
func NewStoreMetrics(backend string) *StoreMetrics {
	return &StoreMetrics{backend: backend}
}

// Track counts the operation and returns a function that records its latency
// when called (e.g. defer).
func (m *StoreMetrics) Track(operation string) func() {
	start := time.Now()
	StoreOperations.WithLabelValues(m.backend, operation).Inc()
	return func() {
		StoreLatency.WithLabelValues(m.backend, operation).Observe(time.Since(start).Seconds())
	}
}

// Error counts a backend failure.
func (m *StoreMetrics) Error(operation string) {
	StoreErrors.WithLabelValues(m.backend, operation).Inc()
}

// Quota counts a rejected write.
func (m *StoreMetrics) Quota() {
	StoreQuotaRejections.WithLabelValues(m.backend).Inc()
}
