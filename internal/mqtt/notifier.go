package mqtt

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/Himson2006/Yolo-Gpu-2/internal/logger"
)

// Topic suffixes under the configured base topic.
const (
	TopicIngested   = "events/ingested"
	TopicDeleted    = "events/deleted"
	TopicAnnotation = "events/annotated"
)

// EventMessage announces a newly ingested or deleted event.
type EventMessage struct {
	EventID   string    `json:"event_id"`
	DeviceID  string    `json:"device_id"`
	StartedAt time.Time `json:"started_at"`
	Species   []string  `json:"species"`
}

// AnnotationMessage announces an operator edit.
type AnnotationMessage struct {
	EventID   string    `json:"event_id"`
	Operation string    `json:"operation"`
	Degraded  bool      `json:"degraded"` // the mirror update failed
	Species   []string  `json:"species,omitempty"`
	Behavior  string    `json:"behavior,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier publishes notification messages. A nil *Notifier drops everything.
// Publish failures are logged and never returned; notifications are best-effort.
type Notifier struct {
	client    Client
	baseTopic string
	log       logger.Logger
}

// NewNotifier publishes through client under baseTopic.
func NewNotifier(client Client, baseTopic string) *Notifier {
	if baseTopic == "" {
		baseTopic = "camtrap"
	}
	return &Notifier{
		client:    client,
		baseTopic: baseTopic,
		log:       logger.Global().Module("mqtt"),
	}
}

// EventIngested publishes an ingest notification.
func (n *Notifier) EventIngested(ctx context.Context, msg EventMessage) {
	n.publish(ctx, TopicIngested, msg)
}

// EventDeleted publishes a delete notification.
func (n *Notifier) EventDeleted(ctx context.Context, msg EventMessage) {
	n.publish(ctx, TopicDeleted, msg)
}

// Annotated publishes an annotation notification.
func (n *Notifier) Annotated(ctx context.Context, msg AnnotationMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	n.publish(ctx, TopicAnnotation, msg)
}

// Topic returns the full topic for suffix.
func (n *Notifier) Topic(suffix string) string {
	return path.Join(n.baseTopic, suffix)
}

func (n *Notifier) publish(ctx context.Context, suffix string, msg any) {
	if n == nil || n.client == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		n.log.Error("failed to encode notification", logger.String("topic", suffix), logger.Error(err))
		return
	}
	topic := n.Topic(suffix)
	if err := n.client.Publish(ctx, topic, payload); err != nil {
		n.log.WithContext(ctx).Warn("notification not published",
			logger.String("topic", topic),
			logger.Error(err))
	}
}
