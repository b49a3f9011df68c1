package flow

import (
	"context"

	"github.com/Revoa-ux/revoa-app-sub007/services/escalation"
	"github.com/Revoa-ux/revoa-app-sub007/services/flowcontext"
)

// Catalog reads flow definitions. GetFlow returns nil, nil when the flow does not exist.
type Catalog interface {
	GetFlow(ctx context.Context, id string) (*Definition, error)
	// ActiveFlowsByCategory returns active flows of a category, highest version first.
	ActiveFlowsByCategory(ctx context.Context, category string) ([]Definition, error)
}

// SessionStore persists sessions. Reads return nil, nil when nothing matches.
type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	UpdateSession(ctx context.Context, s *Session) error
	ActiveSessionForThread(ctx context.Context, threadID string) (*Session, error)
}

// ResponseLog is the append-only response audit trail.
type ResponseLog interface {
	AppendResponse(ctx context.Context, r *Response) error
}

// Metric is an analytics counter name.
type Metric string

const (
	MetricView       Metric = "view"
	MetricResponse   Metric = "response"
	MetricCompletion Metric = "completion"
)

// Analytics increments per-node counters. elapsedSeconds is only set for completions.
type Analytics interface {
	Record(ctx context.Context, flowID, nodeID string, metric Metric, elapsedSeconds *int) error
}

// ContextProvider builds the order and warranty context of a thread.
type ContextProvider interface {
	Build(ctx context.Context, threadID, selectedItemID string) *flowcontext.FlowContext
}

// Escalator raises agent-action requests.
type Escalator interface {
	Trigger(ctx context.Context, req escalation.Request) (*escalation.Record, error)
}
