package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Bus is an in-process event bus. Each event type is its own topic.
type Bus struct {
	pubSub *gochannel.GoChannel
}

// NewBus creates a Bus backed by a watermill Go channel pub/sub.
func NewBus() *Bus {
	return &Bus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NewStdLogger(false, false),
		),
	}
}

// Publish sends the event to every subscriber of its type.
func (b *Bus) Publish(_ context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("type", event.Type)

	if err := b.pubSub.Publish(event.Type, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Handle subscribes fn to the given event type. Messages are acked whether or not fn
// succeeds; handler errors are logged. The subscription ends when ctx is done.
func (b *Bus) Handle(ctx context.Context, eventType string, fn func(context.Context, Event) error) error {
	messages, err := b.pubSub.Subscribe(ctx, eventType)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", eventType, err)
	}

	go func() {
		for msg := range messages {
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				slog.Error("Failed to decode event", "type", eventType, "error", err)
				msg.Ack()
				continue
			}
			if err := fn(msg.Context(), event); err != nil {
				slog.Error("Event handler failed", "type", eventType, "id", event.ID, "error", err)
			}
			msg.Ack()
		}
	}()
	return nil
}

// Close shuts the bus down and closes subscriber channels.
func (b *Bus) Close() error {
	return b.pubSub.Close()
}
