package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// WriteStats writes every metric of the global registry to w in the
// Prometheus text exposition format. It writes nothing when metrics are
// disabled.
func WriteStats(w io.Writer) error {
	if !IsEnabled() {
		return nil
	}
	return WriteStatsFrom(GetRegistry(), w)
}

// WriteStatsFrom writes every metric gathered from g to w.
func WriteStatsFrom(g prometheus.Gatherer, w io.Writer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
