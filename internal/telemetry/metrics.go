package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the decision plane.
type Metrics struct {
	Runs                 *prometheus.CounterVec // by routing type and simulation flag
	Alerts               *prometheus.CounterVec // by severity
	Confidence           prometheus.Histogram
	LogWriteFailures     *prometheus.CounterVec // by log name
	ExternalCallFailures *prometheus.CounterVec // by collaborator
}

// NewMetrics creates the collectors and registers them with reg. Passing a
// fresh prometheus.NewRegistry() keeps tests isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridsight_orchestration_runs_total",
			Help: "Total orchestration runs",
		}, []string{"routing_type", "simulation"}),
		Alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridsight_alerts_total",
			Help: "Alerts classified, by severity",
		}, []string{"severity"}),
		Confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gridsight_confidence_score",
			Help:    "Distribution of decision confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),
		LogWriteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridsight_log_write_failures_total",
			Help: "Failed writes to bounded log stores",
		}, []string{"log"}),
		ExternalCallFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridsight_external_call_failures_total",
			Help: "Failed calls to external collaborators",
		}, []string{"collaborator"}),
	}

	if reg != nil {
		reg.MustRegister(m.Runs, m.Alerts, m.Confidence, m.LogWriteFailures, m.ExternalCallFailures)
	}
	return m
}
