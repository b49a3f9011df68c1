// Package events carries domain events (escalations, flow completions) between services.
//
// Events are side effects: publishers log failures and never let them block the
// transition that produced the event.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published by the support services.
const (
	TypeEscalationTriggered    = "escalation.triggered"
	TypeEscalationAcknowledged = "escalation.acknowledged"
	TypeEscalationResolved     = "escalation.resolved"
	TypeFlowCompleted          = "flow.completed"
)

// Event is a single domain event.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Data       map[string]any `json:"data"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// New builds an Event with a fresh id and the current time.
func New(eventType string, data map[string]any) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher publishes events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
