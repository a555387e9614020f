package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the evaluation engine.
type Metrics struct {
	EvaluationsTotal *prometheus.CounterVec
	EvaluateDuration prometheus.Histogram
	IneligibleTotal  prometheus.Counter
}

// New registers the evaluation module metrics.
func New() *Metrics {
	return &Metrics{
		EvaluationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "transferdesk_evaluations_total",
			Help: "Total evaluation passes by outcome",
		}, []string{"outcome"}),
		EvaluateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "transferdesk_evaluation_duration_seconds",
			Help:    "Duration of evaluation passes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		IneligibleTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transferdesk_evaluations_ineligible_total",
			Help: "Total completed evaluations found ineligible",
		}),
	}
}

// ObserveEvaluate records one evaluation attempt.
func (m *Metrics) ObserveEvaluate(err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.EvaluationsTotal.WithLabelValues(outcome).Inc()
	m.EvaluateDuration.Observe(time.Since(start).Seconds())
}

// IncrementIneligible records an ineligible verdict.
func (m *Metrics) IncrementIneligible() {
	m.IneligibleTotal.Inc()
}
