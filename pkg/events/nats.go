package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const streamName = "SUPPORT_EVENTS"

// NatsPublisher publishes events to NATS JetStream under "support.<type>".
type NatsPublisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewNatsPublisher connects to NATS and makes sure the event stream exists.
func NewNatsPublisher(url string) (*NatsPublisher, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"support.>"},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		// The stream may already exist with a different config, or the server may still be starting.
		slog.Warn("Failed to ensure NATS stream", "stream", streamName, "error", err)
	}

	return &NatsPublisher{nc: nc, js: js}, nil
}

// Subject returns the NATS subject an event type is published on.
func Subject(eventType string) string {
	return "support." + eventType
}

// Publish sends the event to JetStream.
func (p *NatsPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := Subject(event.Type)
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(event.ID)); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Close closes the NATS connection.
func (p *NatsPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// Forward relays every event of the given types from the bus to target.
func Forward(ctx context.Context, bus *Bus, target Publisher, eventTypes ...string) error {
	for _, eventType := range eventTypes {
		err := bus.Handle(ctx, eventType, func(ctx context.Context, event Event) error {
			return target.Publish(ctx, event)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
