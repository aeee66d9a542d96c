package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/cosfs/pkg/store"
)

// storeMetrics is the Prometheus implementation of store.Metrics.
//
// It collects:
//   - Operation counts by outcome
//   - Operation latency
//   - Bytes transferred
//   - Multipart upload lifecycle events
type storeMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	bytesTransferred  *prometheus.CounterVec
	multipartUploads  *prometheus.CounterVec
}

var (
	globalStoreMetrics     store.Metrics
	globalStoreMetricsOnce sync.Once
)

// NewStoreMetrics returns the store.Metrics registered on the global
// registry. Every call returns the same instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// makes store clients use store.NoopMetrics.
func NewStoreMetrics() store.Metrics {
	if !IsEnabled() {
		return nil
	}
	globalStoreMetricsOnce.Do(func() {
		globalStoreMetrics = NewStoreMetricsWith(GetRegistry())
	})
	return globalStoreMetrics
}

// NewStoreMetricsWith creates a store.Metrics registered on reg.
func NewStoreMetricsWith(reg prometheus.Registerer) store.Metrics {
	return &storeMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of object store operations by operation type and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Duration of object store operations in seconds",
				Buckets: []float64{
					0.01,  // 10ms
					0.025, // 25ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.25,  // 250ms
					0.5,   // 500ms
					1.0,   // 1s
					2.5,   // 2.5s
					5.0,   // 5s
					10.0,  // 10s
					30.0,  // 30s
				},
			},
			[]string{"operation"},
		),
		errorsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Total number of object store errors by operation type",
			},
			[]string{"operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_bytes_transferred_total",
				Help:      "Total bytes transferred to and from the object store",
			},
			[]string{"direction"}, // read or write
		),
		multipartUploads: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_multipart_uploads_total",
				Help:      "Total number of multipart upload events by status",
			},
			[]string{"status"}, // initiated, completed, aborted
		),
	}
}

// ObserveOperation implements store.Metrics.
func (m *storeMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
		m.errorsTotal.WithLabelValues(operation).Inc()
	}

	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBytes implements store.Metrics.
func (m *storeMetrics) RecordBytes(direction string, bytes int64) {
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

// RecordMultipartUpload implements store.Metrics.
func (m *storeMetrics) RecordMultipartUpload(status string) {
	m.multipartUploads.WithLabelValues(status).Inc()
}
