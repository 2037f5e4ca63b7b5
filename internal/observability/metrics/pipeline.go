package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics tracks the ask pipeline: runs, partition fan-out and the
// coverage-verification loop.
type PipelineMetrics struct {
	registry *prometheus.Registry

	askTotal       *prometheus.CounterVec
	askDuration    *prometheus.HistogramVec
	askInFlight    prometheus.Gauge
	partitionTotal *prometheus.CounterVec
	regenerations  prometheus.Counter
	coverageGaps   prometheus.Counter
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	askTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "speechqa",
			Subsystem: "pipeline",
			Name:      "ask_total",
			Help:      "Total ask runs by outcome.",
		},
		[]string{"service", "outcome"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "speechqa",
			Subsystem: "pipeline",
			Name:      "ask_duration_seconds",
			Help:      "Ask run duration in seconds by outcome.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "outcome"},
	)
	askInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "speechqa",
			Subsystem: "pipeline",
			Name:      "ask_in_flight",
			Help:      "Number of ask runs currently executing.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	partitionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "speechqa",
			Subsystem: "retrieval",
			Name:      "partition_search_total",
			Help:      "Partition search calls by status (ok, zero_filled).",
		},
		[]string{"service", "status"},
	)
	regenerations := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "speechqa",
			Subsystem: "coverage",
			Name:      "regeneration_total",
			Help:      "Coverage-driven answer regenerations.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	coverageGaps := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "speechqa",
			Subsystem: "coverage",
			Name:      "gap_accepted_total",
			Help:      "Answers returned with an accepted coverage gap.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(askTotal, askDuration, askInFlight, partitionTotal, regenerations, coverageGaps)

	return &PipelineMetrics{
		registry:       registry,
		askTotal:       askTotal,
		askDuration:    askDuration,
		askInFlight:    askInFlight,
		partitionTotal: partitionTotal,
		regenerations:  regenerations,
		coverageGaps:   coverageGaps,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartAsk() {
	m.askInFlight.Inc()
}

func (m *PipelineMetrics) FinishAsk(service, outcome string, duration time.Duration) {
	m.askInFlight.Dec()
	m.askTotal.WithLabelValues(service, outcome).Inc()
	m.askDuration.WithLabelValues(service, outcome).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObservePartition(service, status string) {
	m.partitionTotal.WithLabelValues(service, status).Inc()
}

func (m *PipelineMetrics) ObserveRegeneration() {
	m.regenerations.Inc()
}

func (m *PipelineMetrics) ObserveCoverageGap() {
	m.coverageGaps.Inc()
}
