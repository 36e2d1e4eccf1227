package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// SearchMetrics contains Prometheus metrics for read paths: search, listings and analytics.
type SearchMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	resultSize        prometheus.Histogram

	collectors []prometheus.Collector
}

// NewSearchMetrics creates and registers search metrics.
func NewSearchMetrics(registry *prometheus.Registry) (*SearchMetrics, error) {
	m := &SearchMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register search metrics: %w", err)
	}
	return m, nil
}

func (m *SearchMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camtrap_search_operations_total",
			Help: "Total number of search, listing and analytics operations",
		},
		[]string{"operation", "status"},
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "camtrap_search_duration_seconds",
			Help:    "Time taken by search, listing and analytics operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
		},
		[]string{"operation"},
	)

	m.resultSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "camtrap_search_results",
		Help:    "Number of events matched by a search",
		Buckets: prometheus.ExponentialBuckets(1, BucketFactor2, BucketCount15),
	})

	m.collectors = []prometheus.Collector{m.operationsTotal, m.operationDuration, m.resultSize}
}

// Describe implements the Collector interface
func (m *SearchMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *SearchMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// RecordOperation records the outcome and duration of an operation. Safe on a nil receiver.
func (m *SearchMetrics) RecordOperation(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// ObserveResults records the number of matches of a search. Safe on a nil receiver.
func (m *SearchMetrics) ObserveResults(n int) {
	if m == nil {
		return
	}
	m.resultSize.Observe(float64(n))
}
