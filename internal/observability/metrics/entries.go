package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EntryMetrics contains Prometheus metrics for entry CRUD operations and
// image uploads.
type EntryMetrics struct {
	entryOperationsTotal *prometheus.CounterVec
	uploadsTotal         *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewEntryMetrics creates and registers entry metrics.
func NewEntryMetrics(registry *prometheus.Registry) (*EntryMetrics, error) {
	m := &EntryMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *EntryMetrics) initMetrics() {
	m.entryOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entries_operations_total",
			Help: "Total number of entry operations",
		},
		[]string{"operation", "status"}, // operation: create, get, list, update, delete
	)

	m.uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entries_image_uploads_total",
			Help: "Total number of image uploads",
		},
		[]string{"kind", "status"}, // kind: original, annotated
	)

	m.collectors = []prometheus.Collector{
		m.entryOperationsTotal,
		m.uploadsTotal,
	}
}

// RecordOperation records one entry operation result.
func (m *EntryMetrics) RecordOperation(operation, status string) {
	m.entryOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordUpload records one image upload attempt.
func (m *EntryMetrics) RecordUpload(kind, status string) {
	m.uploadsTotal.WithLabelValues(kind, status).Inc()
}

func (m *EntryMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

func (m *EntryMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}
