package escalation

import (
	"context"
	"time"
)

// Status is the lifecycle state of an escalation record.
type Status string

const (
	StatusTriggered    Status = "triggered"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// Escalation types declared by flow node metadata.
const (
	TypeCarrierIssue      = "carrier_issue"
	TypeFactoryIssue      = "factory_issue"
	TypeAddressRedirect   = "address_redirect"
	TypeHighValueApproval = "high_value_approval"
	TypeGeneral           = "general"
)

// Record is a request for a human agent to act on a thread.
type Record struct {
	ID              string         `json:"id"`
	ThreadID        string         `json:"threadId"`
	EscalationType  string         `json:"escalationType"`
	TriggeredByNode string         `json:"triggeredByNode"`
	Priority        string         `json:"priority,omitempty"`
	ContextData     map[string]any `json:"contextData"`
	Status          Status         `json:"status"`
	CreatedAt       time.Time      `json:"createdAt"`
	AcknowledgedAt  *time.Time     `json:"acknowledgedAt,omitempty"`
	AcknowledgedBy  string         `json:"acknowledgedBy,omitempty"`
	ResolvedAt      *time.Time     `json:"resolvedAt,omitempty"`
	ResolvedBy      string         `json:"resolvedBy,omitempty"`
	ResolutionNotes string         `json:"resolutionNotes,omitempty"`
}

// Request describes the transition that requires agent action.
type Request struct {
	ThreadID       string
	SessionID      string
	FlowID         string
	NodeID         string
	EscalationType string
	Priority       string
	// FlowState maps node ids to the responses recorded so far.
	FlowState   map[string]any
	OrderID     string
	OrderNumber string
}

// Store persists escalation records. Get returns nil, nil when the record does not exist.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Update(ctx context.Context, rec *Record) error
	ListForThread(ctx context.Context, threadID string) ([]Record, error)
}
