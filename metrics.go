package orbitprop

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records propagation activity. A nil *Metrics is valid and records
// nothing, which is the default for every propagator.
type Metrics struct {
	steps            *prometheus.CounterVec
	keplerIterations prometheus.Histogram
	failures         *prometheus.CounterVec
}

// NewMetrics creates the propagation metrics and registers them with reg
// (if not nil). Registering twice on the same registry panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbitprop_propagation_steps_total",
				Help: "Total number of successful propagation steps.",
			},
			[]string{"propagator"},
		),
		keplerIterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "orbitprop_kepler_iterations",
				Help:    "Newton iterations needed to solve Kepler's equation.",
				Buckets: prometheus.LinearBuckets(1, 1, 10),
			},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orbitprop_propagation_failures_total",
				Help: "Total number of failed propagation steps.",
			},
			[]string{"propagator"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.steps, m.keplerIterations, m.failures)
	}
	return m
}

func (m *Metrics) step(propagator string) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(propagator).Inc()
}

func (m *Metrics) kepler(iterations int) {
	if m == nil || iterations == 0 {
		return
	}
	m.keplerIterations.Observe(float64(iterations))
}

func (m *Metrics) failure(propagator string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(propagator).Inc()
}
