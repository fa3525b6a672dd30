// Package metrics provides Prometheus collectors for the detection pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Detection run outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeFallback  = "fallback"
	OutcomeError     = "error"
)

// DetectionMetrics contains Prometheus metrics for model inference runs.
type DetectionMetrics struct {
	detectionsTotal   *prometheus.CounterVec
	detectionDuration *prometheus.HistogramVec
	cracksPerImage    prometheus.Histogram

	collectors []prometheus.Collector
}

// NewDetectionMetrics creates and registers detection metrics.
func NewDetectionMetrics(registry *prometheus.Registry) (*DetectionMetrics, error) {
	m := &DetectionMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DetectionMetrics) initMetrics() {
	m.detectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detection_runs_total",
			Help: "Total number of detection runs",
		},
		[]string{"outcome"},
	)

	m.detectionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "detection_run_duration_seconds",
			Help:    "Time taken for a full detection run",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"outcome"},
	)

	m.cracksPerImage = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "detection_cracks_per_image",
			Help:    "Number of cracks found per analyzed image",
			Buckets: prometheus.LinearBuckets(0, 1, 16),
		},
	)

	m.collectors = []prometheus.Collector{
		m.detectionsTotal,
		m.detectionDuration,
		m.cracksPerImage,
	}
}

// RecordRun records one detection run with its outcome and duration.
func (m *DetectionMetrics) RecordRun(outcome string, duration time.Duration) {
	m.detectionsTotal.WithLabelValues(outcome).Inc()
	m.detectionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordCracksFound records how many cracks one run produced.
func (m *DetectionMetrics) RecordCracksFound(count int) {
	m.cracksPerImage.Observe(float64(count))
}

func (m *DetectionMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

func (m *DetectionMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}
