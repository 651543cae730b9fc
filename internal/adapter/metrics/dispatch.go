package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics tracks command execution against session clients.
type DispatchMetrics struct {
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
}

func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	m := &DispatchMetrics{
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "commands_total",
			Help:      "Commands dispatched to session clients, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "command_duration_seconds",
			Help:      "Duration of dispatched commands in seconds.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
	}

	reg.MustRegister(m.CommandsTotal, m.CommandDuration)
	return m
}

// Observe records one finished command.
func (m *DispatchMetrics) Observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(operation, outcome(err)).Inc()
	m.CommandDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
