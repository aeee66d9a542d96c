package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/cosfs/pkg/listing"
)

// cacheMetrics is the Prometheus implementation of listing.Metrics.
type cacheMetrics struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	evictions     prometheus.Counter
	invalidations prometheus.Counter
	invalidated   prometheus.Counter
	entries       prometheus.Gauge
}

var (
	globalCacheMetrics     listing.Metrics
	globalCacheMetricsOnce sync.Once
)

// NewCacheMetrics returns the listing.Metrics registered on the global
// registry. Every call returns the same instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// causes the listing cache to use its built-in no-op implementation.
func NewCacheMetrics() listing.Metrics {
	if !IsEnabled() {
		return nil
	}
	globalCacheMetricsOnce.Do(func() {
		globalCacheMetrics = NewCacheMetricsWith(GetRegistry())
	})
	return globalCacheMetrics
}

// NewCacheMetricsWith creates a listing.Metrics registered on reg.
func NewCacheMetricsWith(reg prometheus.Registerer) listing.Metrics {
	return &cacheMetrics{
		hits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_cache_hits_total",
			Help:      "Total number of directory listings served from the cache",
		}),
		misses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_cache_misses_total",
			Help:      "Total number of directory listings not found in the cache",
		}),
		evictions: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_cache_evictions_total",
			Help:      "Total number of listings evicted to respect the path limit",
		}),
		invalidations: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_cache_invalidations_total",
			Help:      "Total number of invalidation requests",
		}),
		invalidated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_cache_invalidated_entries_total",
			Help:      "Total number of cached listings removed by invalidation",
		}),
		entries: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listing_cache_entries",
			Help:      "Current number of cached directory listings",
		}),
	}
}

func (m *cacheMetrics) RecordHit()      { m.hits.Inc() }
func (m *cacheMetrics) RecordMiss()     { m.misses.Inc() }
func (m *cacheMetrics) RecordEviction() { m.evictions.Inc() }

// RecordInvalidation implements listing.Metrics.
func (m *cacheMetrics) RecordInvalidation(n int) {
	m.invalidations.Inc()
	m.invalidated.Add(float64(n))
}

// SetEntries implements listing.Metrics.
func (m *cacheMetrics) SetEntries(n int) {
	m.entries.Set(float64(n))
}
