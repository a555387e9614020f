package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the application module: transition
// volume per operation plus the latency of the transition critical path.
type Metrics struct {
	TransitionsTotal   *prometheus.CounterVec
	TransitionDuration prometheus.Histogram
	ApplicationsTotal  prometheus.Counter
}

// New registers the application module metrics.
func New() *Metrics {
	return &Metrics{
		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "transferdesk_application_transitions_total",
			Help: "Total state machine transitions by operation and outcome",
		}, []string{"operation", "outcome"}),
		TransitionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "transferdesk_application_transition_duration_seconds",
			Help:    "Duration of application state transitions",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ApplicationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transferdesk_applications_created_total",
			Help: "Total draft applications created",
		}),
	}
}

// ObserveTransition records one transition attempt.
func (m *Metrics) ObserveTransition(operation string, err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.TransitionsTotal.WithLabelValues(operation, outcome).Inc()
	m.TransitionDuration.Observe(time.Since(start).Seconds())
}

// IncrementCreated records a draft creation.
func (m *Metrics) IncrementCreated() {
	m.ApplicationsTotal.Inc()
}
