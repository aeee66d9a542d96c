package config

import (
	"github.com/marmos91/cosfs/pkg/listing"
	"github.com/marmos91/cosfs/pkg/metrics"
	"github.com/marmos91/cosfs/pkg/store"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled or port is 0)
	Server *metrics.Server

	// StoreMetrics observes store requests (nil if disabled)
	StoreMetrics store.Metrics

	// CacheMetrics observes the listing cache (nil if disabled)
	CacheMetrics listing.Metrics
}

// Enabled reports whether metrics are being collected.
func (r *MetricsResult) Enabled() bool {
	return r != nil && r.StoreMetrics != nil
}

// InitializeMetrics creates all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server when a port is configured
//   - Creates Prometheus-backed metrics for the store and the listing cache
//
// If metrics are disabled every component is nil and the consumers fall
// back to their no-op implementations.
//
// Collectors live on the global registry, so repeated calls share them.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	result := &MetricsResult{
		StoreMetrics: metrics.NewStoreMetrics(),
		CacheMetrics: metrics.NewCacheMetrics(),
	}

	if cfg.Metrics.Port > 0 {
		result.Server = metrics.NewServer(metrics.ServerConfig{
			Port: cfg.Metrics.Port,
		})
	}

	return result
}
