package metrics

import "github.com/prometheus/client_golang/prometheus"

// MediaMetrics tracks remote media downloads.
type MediaMetrics struct {
	FetchesTotal *prometheus.CounterVec
	FetchedBytes prometheus.Histogram
	BreakerState prometheus.Gauge
}

func NewMediaMetrics(reg prometheus.Registerer) *MediaMetrics {
	m := &MediaMetrics{
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "media",
			Name:      "fetches_total",
			Help:      "Remote media fetches, by outcome.",
		}, []string{"outcome"}),
		FetchedBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "media",
			Name:      "fetched_bytes",
			Help:      "Size of fetched media payloads.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "media",
			Name:      "circuit_breaker_state",
			Help:      "Media fetch circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
	}

	reg.MustRegister(m.FetchesTotal, m.FetchedBytes, m.BreakerState)
	return m
}

func (m *MediaMetrics) Fetch(size int, err error) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		m.FetchedBytes.Observe(float64(size))
	}
}

func (m *MediaMetrics) SetBreakerState(v float64) {
	if m == nil {
		return
	}
	m.BreakerState.Set(v)
}
