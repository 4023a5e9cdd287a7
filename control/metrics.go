// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus registry construction and flat metric snapshots for Stats.

package control

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// NewRegistry returns a registry carrying the Go runtime collector and a
// registerer that labels every component metric with runtime=name.
func NewRegistry(name string) (*prometheus.Registry, prometheus.Registerer) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	return reg, prometheus.WrapRegistererWith(prometheus.Labels{"runtime": name}, reg)
}

// MetricsSnapshot sums every gauge and counter series of g by metric name.
// Histograms and summaries are skipped.
func MetricsSnapshot(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, errors.Wrap(err, "gather metrics")
	}
	out := make(map[string]float64, len(families))
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetGauge() != nil:
				out[mf.GetName()] += m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				out[mf.GetName()] += m.GetCounter().GetValue()
			}
		}
	}
	return out, nil
}
