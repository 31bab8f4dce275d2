package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the collectors the engine reports to.
type Metrics struct {
	opDuration   *prometheus.HistogramVec
	opErrors     *prometheus.CounterVec
	swaps        *prometheus.CounterVec
	ticksCrossed prometheus.Counter
	pools        prometheus.Gauge
}

// NewMetrics creates the engine collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clamm",
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Time spent applying an engine operation, including the commit.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"op"}),
		opErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clamm",
			Subsystem: "engine",
			Name:      "operation_errors_total",
			Help:      "Operations that failed and were rolled back, by error kind.",
		}, []string{"op", "kind"}),
		swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clamm",
			Subsystem: "engine",
			Name:      "swaps_total",
			Help:      "Committed swaps by direction.",
		}, []string{"direction"}),
		ticksCrossed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clamm",
			Subsystem: "engine",
			Name:      "ticks_crossed_total",
			Help:      "Initialized ticks crossed by committed swaps.",
		}),
		pools: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clamm",
			Subsystem: "engine",
			Name:      "pools",
			Help:      "Pools created in the store.",
		}),
	}
	reg.MustRegister(m.opDuration, m.opErrors, m.swaps, m.ticksCrossed, m.pools)
	return m
}

func direction(zeroForOne bool) string {
	if zeroForOne {
		return "zero_for_one"
	}
	return "one_for_zero"
}
