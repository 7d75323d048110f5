package order

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the workflow instrumentation. All methods are nil-safe so
// the service can run without a registry in tests.
type Metrics struct {
	placements    *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	compensations *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		placements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_placed_total",
				Help: "Total number of placement workflow executions by outcome.",
			},
			[]string{"outcome"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "workflow_step_duration_seconds",
				Help:    "Duration of individual placement workflow steps.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"step"},
		),
		compensations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compensations_total",
				Help: "Count of compensation runs by outcome.",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.placements, m.stepDuration, m.compensations)
	return m
}

func (m *Metrics) placed(outcome string) {
	if m == nil {
		return
	}
	m.placements.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeStep(step string, d time.Duration) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

func (m *Metrics) compensated(outcome string) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(outcome).Inc()
}
