package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the pass counters and timings exported by a Runner.
type Metrics struct {
	Passes       *prometheus.CounterVec
	Keys         *prometheus.CounterVec
	Documents    *prometheus.CounterVec
	PassDuration prometheus.Histogram
	KeyDuration  prometheus.Histogram
}

// NewMetrics creates the runner metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "molbuild",
			Name:      "passes_total",
			Help:      "Build passes by final status",
		}, []string{"status"}),
		Keys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "molbuild",
			Name:      "formulas_total",
			Help:      "Formulas processed by outcome",
		}, []string{"outcome"}),
		Documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "molbuild",
			Name:      "documents_total",
			Help:      "Molecule documents by outcome",
		}, []string{"outcome"}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "molbuild",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a build pass",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 16), // 10ms to ~5.5min
		}),
		KeyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "molbuild",
			Name:      "formula_duration_seconds",
			Help:      "Wall time of one formula: fetch, build and upsert",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Passes, m.Keys, m.Documents, m.PassDuration, m.KeyDuration)
	}
	return m
}
