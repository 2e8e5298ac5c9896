package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cookbook_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// StoreOperationLatency records store call latency by operation and table.
	StoreOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cookbook_store_operation_latency_seconds",
		Help:    "Key-value store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// StoreErrors counts failed store calls by operation, table and outcome.
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cookbook_store_errors_total",
		Help: "Total number of failed key-value store operations",
	}, []string{"operation", "table", "outcome"})

	// MediaOperations counts media service calls by operation and result.
	MediaOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cookbook_media_operations_total",
		Help: "Total number of media service calls",
	}, []string{"backend", "operation", "result"})

	// MediaCleanupFailures counts uploaded images that could not be removed.
	MediaCleanupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cookbook_media_cleanup_failures_total",
		Help: "Total number of images left behind after a failed cleanup",
	}, []string{"reason"})

	// IdentityOperations counts identity provider calls by operation and result.
	IdentityOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cookbook_identity_operations_total",
		Help: "Total number of identity provider calls",
	}, []string{"provider", "operation", "result"})

	// CascadeDeletedComments counts comments removed together with their post.
	CascadeDeletedComments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cookbook_cascade_deleted_comments_total",
		Help: "Total number of comments deleted by post cascades",
	})
)

// StoreMetrics records latency for one table.
type StoreMetrics struct {
	table string
}

// NewStoreMetrics returns a StoreMetrics for table.
func NewStoreMetrics(table string) *StoreMetrics {
	return &StoreMetrics{table: table}
}

// ObserveOperation records the latency of a store operation.
func (m *StoreMetrics) ObserveOperation(operation string, start time.Time) {
	StoreOperationLatency.WithLabelValues(operation, m.table).Observe(time.Since(start).Seconds())
}

// TrackOperation returns a function that records latency when called (e.g. defer).
func (m *StoreMetrics) TrackOperation(operation string) func() {
	start := time.Now()
	return func() {
		m.ObserveOperation(operation, start)
	}
}

// RecordError counts a failed operation.
func (m *StoreMetrics) RecordError(operation, outcome string) {
	StoreErrors.WithLabelValues(operation, m.table, outcome).Inc()
}

// Result turns an error into a metric label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
