package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ranking engine.
type Metrics struct {
	GenerationsTotal  *prometheus.CounterVec
	GenerateDuration  prometheus.Histogram
	PublicationsTotal *prometheus.CounterVec
	CohortSize        prometheus.Histogram
}

// New registers the ranking module metrics.
func New() *Metrics {
	return &Metrics{
		GenerationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "transferdesk_ranking_generations_total",
			Help: "Total ranking generation runs by outcome",
		}, []string{"outcome"}),
		GenerateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "transferdesk_ranking_generate_duration_seconds",
			Help:    "Duration of ranking generation runs",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		PublicationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "transferdesk_ranking_publications_total",
			Help: "Total ranking publications by outcome",
		}, []string{"outcome"}),
		CohortSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "transferdesk_ranking_cohort_size",
			Help:    "Completed evaluations per generated cohort",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveGenerate records one generation run.
func (m *Metrics) ObserveGenerate(err error, size int, start time.Time) {
	m.GenerationsTotal.WithLabelValues(outcome(err)).Inc()
	m.GenerateDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		m.CohortSize.Observe(float64(size))
	}
}

// ObservePublish records one publication attempt.
func (m *Metrics) ObservePublish(err error) {
	m.PublicationsTotal.WithLabelValues(outcome(err)).Inc()
}
