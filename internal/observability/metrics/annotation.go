package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// AnnotationMetrics contains Prometheus metrics for operator edits and mirror updates.
type AnnotationMetrics struct {
	operationsTotal *prometheus.CounterVec
	mirrorErrors    *prometheus.CounterVec
}

// NewAnnotationMetrics creates and registers annotation metrics.
func NewAnnotationMetrics(registry *prometheus.Registry) (*AnnotationMetrics, error) {
	m := &AnnotationMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "camtrap_annotation_operations_total",
				Help: "Total number of annotation operations by outcome (success, degraded, error)",
			},
			[]string{"operation", "status"},
		),
		mirrorErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "camtrap_mirror_errors_total",
				Help: "Total number of failed mirror document updates",
			},
			[]string{"operation"},
		),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register annotation metrics: %w", err)
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *AnnotationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.mirrorErrors.Describe(ch)
}

// Collect implements the Collector interface
func (m *AnnotationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.mirrorErrors.Collect(ch)
}

// RecordOperation counts an annotation outcome. Safe on a nil receiver.
func (m *AnnotationMetrics) RecordOperation(operation, status string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordMirrorError counts a failed mirror update. Safe on a nil receiver.
func (m *AnnotationMetrics) RecordMirrorError(operation string) {
	if m == nil {
		return
	}
	m.mirrorErrors.WithLabelValues(operation).Inc()
}
