package escalation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Revoa-ux/revoa-app-sub007/pkg/events"
)

var (
	ErrNotFound          = errors.New("escalation not found")
	ErrInvalidTransition = errors.New("invalid escalation status transition")
)

// Service creates escalation records and moves them through their lifecycle.
type Service struct {
	store     Store
	registry  Registry
	publisher events.Publisher
	now       func() time.Time
}

// NewService creates a Service over the given store. publisher may be nil.
func NewService(store Store, publisher events.Publisher) *Service {
	return &Service{
		store:     store,
		registry:  NewRegistry(),
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NewPostgresService creates a Service backed by the escalations table.
func NewPostgresService(pool *pgxpool.Pool, publisher events.Publisher) *Service {
	return NewService(NewRepository(pool), publisher)
}

// Trigger records a new escalation built from the flow state of the request.
func (s *Service) Trigger(ctx context.Context, req Request) (*Record, error) {
	escalationType := req.EscalationType
	if escalationType == "" {
		escalationType = TypeGeneral
	}

	data := s.registry.Build(escalationType, req.FlowState)
	data["escalationType"] = escalationType
	if req.OrderID != "" {
		data["orderId"] = req.OrderID
	}
	if req.OrderNumber != "" {
		data["orderNumber"] = req.OrderNumber
	}
	if req.SessionID != "" {
		data["sessionId"] = req.SessionID
	}
	if req.FlowID != "" {
		data["flowId"] = req.FlowID
	}
	state := req.FlowState
	if state == nil {
		state = map[string]any{}
	}
	data["flowState"] = state

	rec := &Record{
		ID:              uuid.New().String(),
		ThreadID:        req.ThreadID,
		EscalationType:  escalationType,
		TriggeredByNode: req.NodeID,
		Priority:        req.Priority,
		ContextData:     data,
		Status:          StatusTriggered,
		CreatedAt:       s.now(),
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create escalation: %w", err)
	}

	slog.Info("Escalation triggered", "id", rec.ID, "threadId", rec.ThreadID, "type", escalationType, "node", req.NodeID)
	s.publish(ctx, events.TypeEscalationTriggered, rec)
	return rec, nil
}

// Acknowledge marks a triggered escalation as picked up by an agent.
func (s *Service) Acknowledge(ctx context.Context, id, agentID string) (*Record, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusTriggered {
		return nil, fmt.Errorf("acknowledge %s escalation: %w", rec.Status, ErrInvalidTransition)
	}

	now := s.now()
	rec.Status = StatusAcknowledged
	rec.AcknowledgedAt = &now
	rec.AcknowledgedBy = agentID
	if err := s.store.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("acknowledge escalation: %w", err)
	}
	s.publish(ctx, events.TypeEscalationAcknowledged, rec)
	return rec, nil
}

// Resolve closes a triggered or acknowledged escalation.
func (s *Service) Resolve(ctx context.Context, id, agentID, notes string) (*Record, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != StatusTriggered && rec.Status != StatusAcknowledged {
		return nil, fmt.Errorf("resolve %s escalation: %w", rec.Status, ErrInvalidTransition)
	}

	now := s.now()
	rec.Status = StatusResolved
	rec.ResolvedAt = &now
	rec.ResolvedBy = agentID
	rec.ResolutionNotes = notes
	if err := s.store.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("resolve escalation: %w", err)
	}
	s.publish(ctx, events.TypeEscalationResolved, rec)
	return rec, nil
}

// ListForThread returns the escalations of a thread, newest first.
func (s *Service) ListForThread(ctx context.Context, threadID string) ([]Record, error) {
	recs, err := s.store.ListForThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}
	return recs, nil
}

func (s *Service) load(ctx context.Context, id string) (*Record, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get escalation: %w", err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *Service) publish(ctx context.Context, eventType string, rec *Record) {
	if s.publisher == nil {
		return
	}
	evt := events.New(eventType, map[string]any{
		"escalationId":   rec.ID,
		"threadId":       rec.ThreadID,
		"escalationType": rec.EscalationType,
		"status":         string(rec.Status),
		"priority":       rec.Priority,
	})
	if err := s.publisher.Publish(ctx, evt); err != nil {
		slog.Warn("Failed to publish escalation event", "id", rec.ID, "type", eventType, "error", err)
	}
}

// LoadRoutes registers escalation HTTP handlers on the given router.
func (s *Service) LoadRoutes(parentRouter *mux.Router) {
	threads := parentRouter.PathPrefix("/threads").Subrouter()
	threads.Use(jsonMiddleware)
	threads.HandleFunc("/{threadId}/escalations", s.HandleListEscalations).Methods("GET")

	router := parentRouter.PathPrefix("/escalations").Subrouter()
	router.StrictSlash(false)
	router.Use(jsonMiddleware)
	router.HandleFunc("/{id}/acknowledge", s.HandleAcknowledge).Methods("POST")
	router.HandleFunc("/{id}/resolve", s.HandleResolve).Methods("POST")
}
