// Package mqtt publishes event notifications to an MQTT broker.
package mqtt

import (
	"context"
	"time"
)

// Client is the broker connection the Notifier publishes through.
type Client interface {
	Connect(ctx context.Context) error
	Publish(ctx context.Context, topic string, payload []byte) error
	IsConnected() bool
	Disconnect()
}

// ClientConfig configures the paho-backed Client.
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string

	// QoS of notification messages. Notifications are advisory, so 0 is the default.
	QoS byte

	ReconnectCooldown time.Duration
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

func defaultClientConfig() ClientConfig {
	return ClientConfig{
		ReconnectCooldown: 5 * time.Second,
		ConnectTimeout:    15 * time.Second,
		PublishTimeout:    5 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}
