package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestBus_DeliversToSubscriber(t *testing.T) {
	bus := NewBus()
	t.Cleanup(func() { bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Event, 1)
	require.NoError(t, bus.Handle(ctx, TypeEscalationTriggered, func(_ context.Context, e Event) error {
		received <- e
		return nil
	}))

	sent := New(TypeEscalationTriggered, map[string]any{"threadId": "t-1"})
	require.NoError(t, bus.Publish(ctx, sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, TypeEscalationTriggered, got.Type)
		assert.Equal(t, "t-1", got.Data["threadId"])
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	bus := NewBus()
	t.Cleanup(func() { bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	calls := 0
	require.NoError(t, bus.Handle(ctx, TypeFlowCompleted, func(context.Context, Event) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("boom")
	}))

	require.NoError(t, bus.Publish(ctx, New(TypeFlowCompleted, nil)))
	require.NoError(t, bus.Publish(ctx, New(TypeFlowCompleted, nil)))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestForward(t *testing.T) {
	bus := NewBus()
	t.Cleanup(func() { bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	target := &recordingPublisher{}
	require.NoError(t, Forward(ctx, bus, target, TypeEscalationTriggered, TypeEscalationResolved))

	require.NoError(t, bus.Publish(ctx, New(TypeEscalationTriggered, nil)))
	require.NoError(t, bus.Publish(ctx, New(TypeEscalationResolved, nil)))
	require.NoError(t, bus.Publish(ctx, New(TypeFlowCompleted, nil)))

	assert.Eventually(t, func() bool { return target.count() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "support.escalation.triggered", Subject(TypeEscalationTriggered))
}
