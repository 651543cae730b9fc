package metrics

import "github.com/prometheus/client_golang/prometheus"

// SessionMetrics tracks client lifecycle activity across all sessions.
type SessionMetrics struct {
	Sessions          *prometheus.GaugeVec
	LifecycleEvents   *prometheus.CounterVec
	ReconnectAttempts prometheus.Counter
	GreetingsSent     *prometheus.CounterVec
}

func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		Sessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "sessions",
			Help:      "Number of registered sessions by lifecycle state.",
		}, []string{"state"}),
		LifecycleEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "lifecycle_events_total",
			Help:      "Client lifecycle events handled, by event.",
		}, []string{"event"}),
		ReconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "reconnect_attempts_total",
			Help:      "Client initialization attempts after a failure or disconnect.",
		}),
		GreetingsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "greetings_total",
			Help:      "Group welcome and farewell messages, by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	reg.MustRegister(m.Sessions, m.LifecycleEvents, m.ReconnectAttempts, m.GreetingsSent)
	return m
}

// Transition moves one session from one state gauge to another. Empty from means new.
func (m *SessionMetrics) Transition(from, to string) {
	if m == nil {
		return
	}
	if from != "" {
		m.Sessions.WithLabelValues(from).Dec()
	}
	if to != "" {
		m.Sessions.WithLabelValues(to).Inc()
	}
}

func (m *SessionMetrics) Event(name string) {
	if m == nil {
		return
	}
	m.LifecycleEvents.WithLabelValues(name).Inc()
}

func (m *SessionMetrics) Reconnect() {
	if m == nil {
		return
	}
	m.ReconnectAttempts.Inc()
}

func (m *SessionMetrics) Greeting(kind string, err error) {
	if m == nil {
		return
	}
	m.GreetingsSent.WithLabelValues(kind, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
