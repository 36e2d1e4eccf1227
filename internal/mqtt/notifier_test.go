package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himson2006/Yolo-Gpu-2/internal/errors"
	"github.com/Himson2006/Yolo-Gpu-2/internal/observability/metrics"
)

type published struct {
	topic   string
	payload []byte
}

type recordingClient struct {
	mu       sync.Mutex
	messages []published
	err      error
}

func (r *recordingClient) Connect(context.Context) error { return nil }
func (r *recordingClient) IsConnected() bool             { return true }
func (r *recordingClient) Disconnect()                   {}

func (r *recordingClient) Publish(_ context.Context, topic string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, published{topic, payload})
	return nil
}

func TestNotifierTopicsAndPayloads(t *testing.T) {
	t.Parallel()

	rc := &recordingClient{}
	n := NewNotifier(rc, "traps/site1/")
	ctx := context.Background()
	start := time.Date(2024, 6, 1, 5, 0, 0, 0, time.UTC)

	n.EventIngested(ctx, EventMessage{EventID: "ev1", DeviceID: "cam-1", StartedAt: start, Species: []string{"Deer"}})
	n.Annotated(ctx, AnnotationMessage{EventID: "ev1", Operation: "override_species", Species: []string{}})
	n.EventDeleted(ctx, EventMessage{EventID: "ev1"})

	require.Len(t, rc.messages, 3)
	assert.Equal(t, "traps/site1/events/ingested", rc.messages[0].topic)
	assert.JSONEq(t,
		`{"event_id":"ev1","device_id":"cam-1","started_at":"2024-06-01T05:00:00Z","species":["Deer"]}`,
		string(rc.messages[0].payload))

	assert.Equal(t, "traps/site1/events/annotated", rc.messages[1].topic)
	var ann map[string]any
	require.NoError(t, json.Unmarshal(rc.messages[1].payload, &ann))
	assert.Equal(t, "override_species", ann["operation"])
	assert.Equal(t, false, ann["degraded"])
	assert.NotEmpty(t, ann["timestamp"])

	assert.Equal(t, "traps/site1/events/deleted", rc.messages[2].topic)
}

func TestNotifierDefaultTopic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "camtrap/events/ingested", NewNotifier(&recordingClient{}, "").Topic(TopicIngested))
}

func TestNotifierSwallowsFailures(t *testing.T) {
	t.Parallel()

	rc := &recordingClient{err: errors.NewStd("broker down")}
	n := NewNotifier(rc, "camtrap")
	assert.NotPanics(t, func() {
		n.EventIngested(context.Background(), EventMessage{EventID: "ev1"})
	})

	var nilNotifier *Notifier
	assert.NotPanics(t, func() {
		nilNotifier.Annotated(context.Background(), AnnotationMessage{EventID: "ev1"})
	})
}

func TestClientPublishWhileDisconnected(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	c := newClient(ClientConfig{Broker: "tcp://127.0.0.1:1883", PublishTimeout: time.Second}, m)
	assert.False(t, c.IsConnected())

	err = c.Publish(context.Background(), "camtrap/test", []byte("{}"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPublish))
	assert.InDelta(t, 1, testutil.ToFloat64(m.Notifications.WithLabelValues("test", metrics.StatusError)), 0)

	assert.NotPanics(t, c.Disconnect)
}

func TestClientRejectsInvalidBroker(t *testing.T) {
	t.Parallel()

	c := newClient(ClientConfig{Broker: "://bad url", ReconnectCooldown: time.Minute}, nil)
	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	err = c.Connect(context.Background())
	require.Error(t, err, "a second attempt inside the cooldown is refused")
}
