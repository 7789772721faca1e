package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/grez-lucas/dialer-helper/internal/dialer/detect"
)

const namespace = "dialer"

// Metrics holds the agent's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	Detections *prometheus.CounterVec
	Fills      *prometheus.CounterVec
	Attempts   prometheus.Histogram
	OnDemand   *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Detections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Country inputs handed to the fill scheduler, by trigger.",
		}, []string{"trigger"}),
		Fills: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fills_total",
			Help:      "Completed fill runs, by final state and dropdown method.",
		}, []string{"state", "method"}),
		Attempts: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fill_attempts",
			Help:      "Injection attempts per fill run.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		OnDemand: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "on_demand_requests_total",
			Help:      "On-demand fill requests, by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) observeDetection(d detect.Detection) {
	if m == nil {
		return
	}
	m.Detections.WithLabelValues(string(d.Trigger)).Inc()
	m.Fills.WithLabelValues(d.Outcome.State.String(), string(d.Outcome.Resolution.Method)).Inc()
	m.Attempts.Observe(float64(d.Outcome.Attempts))
}

func (m *Metrics) observeOnDemand(found bool, err error) {
	if m == nil {
		return
	}
	result := "not_found"
	switch {
	case err != nil:
		result = "error"
	case found:
		result = "found"
	}
	m.OnDemand.WithLabelValues(result).Inc()
}
