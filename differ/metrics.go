package differ

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	diffDuration prometheus.Histogram
	changes      *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		diffDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clamm",
			Subsystem: "differ",
			Name:      "diff_duration_seconds",
			Help:      "Time spent comparing two snapshots.",
			Buckets:   prometheus.DefBuckets,
		}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clamm",
			Subsystem: "differ",
			Name:      "pool_changes_total",
			Help:      "Pools found added, updated or deleted between snapshots.",
		}, []string{"change"}),
	}
	reg.MustRegister(m.diffDuration, m.changes)
	return m
}
