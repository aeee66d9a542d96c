package store

import "time"

// Metrics receives observations about store operations.
//
// Implementations can forward to Prometheus (pkg/metrics) or count calls in
// tests. Passing nil to a client selects NoopMetrics.
type Metrics interface {
	// ObserveOperation records one store request with its duration and outcome
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records bytes transferred ("read" or "write")
	RecordBytes(direction string, bytes int64)

	// RecordMultipartUpload records a multipart lifecycle event
	// status is one of "initiated", "completed", "aborted"
	RecordMultipartUpload(status string)
}

// NoopMetrics discards every observation.
type NoopMetrics struct{}

func (NoopMetrics) ObserveOperation(string, time.Duration, error) {}
func (NoopMetrics) RecordBytes(string, int64)                     {}
func (NoopMetrics) RecordMultipartUpload(string)                  {}

// MetricsOrNoop returns m, or NoopMetrics when m is nil.
func MetricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return NoopMetrics{}
	}
	return m
}
