package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebSocketMetrics holds Prometheus metrics for the observer channel.
type WebSocketMetrics struct {
	ActiveObservers  prometheus.Gauge
	FramesPublished  prometheus.Counter
	ObserversDropped *prometheus.CounterVec
}

// NewWebSocketMetrics creates and registers observer metrics on the given registry.
func NewWebSocketMetrics(reg prometheus.Registerer) *WebSocketMetrics {
	m := &WebSocketMetrics{
		ActiveObservers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_observers",
			Help:      "Number of connected observers.",
		}),
		FramesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "frames_published_total",
			Help:      "Total number of frames fanned out to observers.",
		}),
		ObserversDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "observers_dropped_total",
			Help:      "Observers disconnected by the server, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.ActiveObservers, m.FramesPublished, m.ObserversDropped)
	return m
}
