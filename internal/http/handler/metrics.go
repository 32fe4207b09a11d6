package handler

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prediction outcomes recorded by Metrics.
const (
	outcomeOK      = "ok"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

// Metrics are the prediction counters exposed on /metrics.
type Metrics struct {
	predictions *prometheus.CounterVec
	injuries    prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crash",
			Name:      "predictions_total",
			Help:      "Prediction requests by outcome.",
		}, []string{"outcome"}),
		injuries: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crash",
			Name:      "predicted_injuries",
			Help:      "Predicted number of injuries per request.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 8},
		}),
	}
	reg.MustRegister(m.predictions, m.injuries)
	return m
}

func (m *Metrics) observe(outcome string, value float64) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(outcome).Inc()
	if outcome == outcomeOK {
		m.injuries.Observe(value)
	}
}
