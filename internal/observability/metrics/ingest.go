package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics contains Prometheus metrics for watch-folder ingestion.
type IngestMetrics struct {
	documentsTotal *prometheus.CounterVec
	runDuration    prometheus.Histogram
}

// NewIngestMetrics creates and registers ingest metrics.
func NewIngestMetrics(registry *prometheus.Registry) (*IngestMetrics, error) {
	m := &IngestMetrics{
		documentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "camtrap_ingest_documents_total",
				Help: "Total number of detection documents processed by outcome",
			},
			[]string{"status"}, // ingested, skipped, failed
		),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "camtrap_ingest_run_duration_seconds",
			Help:    "Time taken by a watch-folder ingest run",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register ingest metrics: %w", err)
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *IngestMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.documentsTotal.Describe(ch)
	m.runDuration.Describe(ch)
}

// Collect implements the Collector interface
func (m *IngestMetrics) Collect(ch chan<- prometheus.Metric) {
	m.documentsTotal.Collect(ch)
	m.runDuration.Collect(ch)
}

// RecordDocument counts a processed document. Safe on a nil receiver.
func (m *IngestMetrics) RecordDocument(status string) {
	if m == nil {
		return
	}
	m.documentsTotal.WithLabelValues(status).Inc()
}

// ObserveRun records the duration of an ingest run. Safe on a nil receiver.
func (m *IngestMetrics) ObserveRun(seconds float64) {
	if m == nil {
		return
	}
	m.runDuration.Observe(seconds)
}
