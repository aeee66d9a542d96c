package listing

// Metrics receives listing cache observations.
//
// pkg/metrics provides a Prometheus implementation. Passing nil to New
// selects a no-op.
type Metrics interface {
	RecordHit()
	RecordMiss()
	RecordEviction()

	// RecordInvalidation records one invalidation that removed n entries
	RecordInvalidation(n int)

	// SetEntries reports the current number of cached directories
	SetEntries(n int)
}

type noopMetrics struct{}

func (noopMetrics) RecordHit()             {}
func (noopMetrics) RecordMiss()            {}
func (noopMetrics) RecordEviction()        {}
func (noopMetrics) RecordInvalidation(int) {}
func (noopMetrics) SetEntries(int)         {}
