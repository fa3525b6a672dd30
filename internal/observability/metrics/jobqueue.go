package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// JobQueueMetrics contains Prometheus metrics for the async detection queue.
type JobQueueMetrics struct {
	jobsEnqueuedTotal  prometheus.Counter
	jobsProcessedTotal *prometheus.CounterVec
	queueDepthGauge    prometheus.Gauge

	collectors []prometheus.Collector
}

// NewJobQueueMetrics creates and registers job queue metrics.
func NewJobQueueMetrics(registry *prometheus.Registry) (*JobQueueMetrics, error) {
	m := &JobQueueMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *JobQueueMetrics) initMetrics() {
	m.jobsEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobqueue_jobs_enqueued_total",
			Help: "Total number of detection jobs enqueued",
		},
	)

	m.jobsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobqueue_jobs_processed_total",
			Help: "Total number of detection jobs processed",
		},
		[]string{"status"}, // status: success, skipped, error
	)

	m.queueDepthGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobqueue_depth",
			Help: "Number of jobs waiting in the queue",
		},
	)

	m.collectors = []prometheus.Collector{
		m.jobsEnqueuedTotal,
		m.jobsProcessedTotal,
		m.queueDepthGauge,
	}
}

// RecordEnqueued records one enqueued job.
func (m *JobQueueMetrics) RecordEnqueued() {
	m.jobsEnqueuedTotal.Inc()
}

// RecordProcessed records one processed job with its status.
func (m *JobQueueMetrics) RecordProcessed(status string) {
	m.jobsProcessedTotal.WithLabelValues(status).Inc()
}

// SetQueueDepth updates the current queue depth.
func (m *JobQueueMetrics) SetQueueDepth(depth int) {
	m.queueDepthGauge.Set(float64(depth))
}

func (m *JobQueueMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

func (m *JobQueueMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}
