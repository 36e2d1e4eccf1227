package metrics

import (
	"fmt"
	"path"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTTMetrics tracks notification publishing. Notifications are labelled by
// kind, the last segment of their topic (ingested, deleted, annotated).
type MQTTMetrics struct {
	ConnectionStatus prometheus.Gauge
	Notifications    *prometheus.CounterVec
	MessageSize      prometheus.Histogram
	PublishLatency   prometheus.Histogram
}

// NewMQTTMetrics creates and registers the MQTT collectors.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		ConnectionStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "camtrap_mqtt_connection_status",
			Help: "1 while connected to the MQTT broker, 0 otherwise",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camtrap_mqtt_notifications_total",
			Help: "Notification publish attempts by kind and status",
		}, []string{"kind", "status"}),
		MessageSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "camtrap_mqtt_message_size_bytes",
			Help:    "Size of published notifications in bytes",
			Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount10),
		}),
		PublishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "camtrap_mqtt_publish_latency_seconds",
			Help:    "Time until the broker acknowledged a notification",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
	}
	return m, nil
}

// UpdateConnectionStatus sets the connection gauge. Safe on a nil receiver.
func (m *MQTTMetrics) UpdateConnectionStatus(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.ConnectionStatus.Set(1)
	} else {
		m.ConnectionStatus.Set(0)
	}
}

// RecordPublish records one publish attempt on topic. Size and latency are
// observed for delivered messages only. Safe on a nil receiver.
func (m *MQTTMetrics) RecordPublish(topic string, sizeBytes int, latency time.Duration, err error) {
	if m == nil {
		return
	}
	kind := path.Base(topic)
	if err != nil {
		m.Notifications.WithLabelValues(kind, StatusError).Inc()
		return
	}
	m.Notifications.WithLabelValues(kind, StatusSuccess).Inc()
	m.MessageSize.Observe(float64(sizeBytes))
	m.PublishLatency.Observe(latency.Seconds())
}

// Collect implements prometheus.Collector.
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.ConnectionStatus
	m.Notifications.Collect(ch)
	m.MessageSize.Collect(ch)
	m.PublishLatency.Collect(ch)
}

// Describe implements prometheus.Collector.
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.ConnectionStatus.Desc()
	m.Notifications.Describe(ch)
	ch <- m.MessageSize.Desc()
	ch <- m.PublishLatency.Desc()
}
