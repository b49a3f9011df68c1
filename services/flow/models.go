package flow

import (
	"errors"
	"fmt"
	"time"
)

// Node types.
const (
	NodeQuestion   = "question"
	NodeDecision   = "decision"
	NodeInfo       = "info"
	NodeCompletion = "completion"
)

// Condition operators.
const (
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpContains    = "contains"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpIn          = "in"
	OpNotIn       = "not_in"
)

// Condition join operators.
const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

// Validation rule types.
const (
	ValidationRequired = "required"
	ValidationMin      = "min"
	ValidationMax      = "max"
	ValidationPattern  = "pattern"
)

// Definition is an immutable, versioned support-conversation graph.
type Definition struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description"`
	Category    string    `json:"category" yaml:"category"`
	Version     int       `json:"version" yaml:"version"`
	IsActive    bool      `json:"isActive" yaml:"isActive"`
	StartNodeID string    `json:"startNodeId" yaml:"startNodeId"`
	Nodes       []Node    `json:"nodes" yaml:"nodes"`
	CreatedAt   time.Time `json:"createdAt,omitempty" yaml:"-"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty" yaml:"-"`
}

// Node is one step of a flow.
type Node struct {
	ID              string            `json:"id" yaml:"id"`
	Type            string            `json:"type" yaml:"type"`
	Content         Content           `json:"content" yaml:"content"`
	NextNodeID      string            `json:"nextNodeId,omitempty" yaml:"nextNodeId"`
	ConditionalNext []ConditionalNext `json:"conditionalNext,omitempty" yaml:"conditionalNext"`
	ResponseType    string            `json:"responseType,omitempty" yaml:"responseType"`
	Options         []Option          `json:"options,omitempty" yaml:"options"`
	Validations     []Validation      `json:"validations,omitempty" yaml:"validations"`
	Metadata        Metadata          `json:"metadata" yaml:"metadata"`
}

// Content is the display text of a node. Body may contain dynamic placeholders.
type Content struct {
	Title string `json:"title" yaml:"title"`
	Body  string `json:"body,omitempty" yaml:"body"`
}

// Option is one selectable answer of a choice node.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// ConditionalNext is a guarded edge. The first entry whose conditions hold wins.
type ConditionalNext struct {
	Conditions []Condition `json:"conditions" yaml:"conditions"`
	NextNodeID string      `json:"nextNodeId" yaml:"nextNodeId"`
}

// Condition tests a response. Field names either the node being answered or an earlier node.
// Logic is the join applied when this condition is folded into the running result.
type Condition struct {
	Field    string `json:"field" yaml:"field"`
	Operator string `json:"operator" yaml:"operator"`
	Value    any    `json:"value" yaml:"value"`
	Logic    string `json:"logic,omitempty" yaml:"logic"`
}

// Validation is a rule applied to a submitted response.
type Validation struct {
	Type    string `json:"type" yaml:"type"`
	Value   any    `json:"value,omitempty" yaml:"value"`
	Message string `json:"message" yaml:"message"`
}

// Metadata holds the fixed set of per-node hints read by the session manager.
type Metadata struct {
	HelpText            string   `json:"helpText,omitempty" yaml:"helpText"`
	Skippable           bool     `json:"skippable,omitempty" yaml:"skippable"`
	RequiresAgentAction bool     `json:"requiresAgentAction,omitempty" yaml:"requiresAgentAction"`
	EscalationType      string   `json:"escalationType,omitempty" yaml:"escalationType"`
	EscalationPriority  string   `json:"escalationPriority,omitempty" yaml:"escalationPriority"`
	TemplateSuggestions []string `json:"templateSuggestions,omitempty" yaml:"templateSuggestions"`
	// AutoRoute marks a damage classification question whose answer feeds the decision engine.
	AutoRoute bool `json:"autoRoute,omitempty" yaml:"autoRoute"`
	// RouteTargets maps decision targets to node ids. Unmapped targets are used as node ids.
	RouteTargets    map[string]string `json:"routeTargets,omitempty" yaml:"routeTargets"`
	SelectsLineItem bool              `json:"selectsLineItem,omitempty" yaml:"selectsLineItem"`
	ShowGuidance    bool              `json:"showGuidance,omitempty" yaml:"showGuidance"`
}

// NodeByID returns the node with the given id, or nil.
func (d *Definition) NodeByID(id string) *Node {
	if id == "" {
		return nil
	}
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

// Validate checks the graph is well formed: the start node exists, node ids are unique,
// every edge resolves and only known node types, operators and rules are used.
func (d *Definition) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("flow id is required"))
	}

	seen := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.ID == "" {
			errs = append(errs, errors.New("node id is required"))
			continue
		}
		if seen[n.ID] {
			errs = append(errs, fmt.Errorf("duplicate node id %q", n.ID))
		}
		seen[n.ID] = true
	}

	if !seen[d.StartNodeID] {
		errs = append(errs, fmt.Errorf("start node %q not found", d.StartNodeID))
	}

	for _, n := range d.Nodes {
		switch n.Type {
		case NodeQuestion, NodeDecision, NodeInfo, NodeCompletion:
		default:
			errs = append(errs, fmt.Errorf("node %q: unknown type %q", n.ID, n.Type))
		}
		if n.NextNodeID != "" && !seen[n.NextNodeID] {
			errs = append(errs, fmt.Errorf("node %q: next node %q not found", n.ID, n.NextNodeID))
		}
		for _, cn := range n.ConditionalNext {
			if !seen[cn.NextNodeID] {
				errs = append(errs, fmt.Errorf("node %q: conditional target %q not found", n.ID, cn.NextNodeID))
			}
			for _, c := range cn.Conditions {
				if !knownOperator(c.Operator) {
					errs = append(errs, fmt.Errorf("node %q: unknown operator %q", n.ID, c.Operator))
				}
				if c.Logic != "" && c.Logic != LogicAnd && c.Logic != LogicOr {
					errs = append(errs, fmt.Errorf("node %q: unknown logic %q", n.ID, c.Logic))
				}
			}
		}
		for _, v := range n.Validations {
			switch v.Type {
			case ValidationRequired, ValidationMin, ValidationMax, ValidationPattern:
			default:
				errs = append(errs, fmt.Errorf("node %q: unknown validation %q", n.ID, v.Type))
			}
		}
		for target, nodeID := range n.Metadata.RouteTargets {
			if !seen[nodeID] {
				errs = append(errs, fmt.Errorf("node %q: route target %s -> %q not found", n.ID, target, nodeID))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid flow %q: %w", d.ID, errors.Join(errs...))
	}
	return nil
}

func knownOperator(op string) bool {
	switch op {
	case OpEquals, OpNotEquals, OpContains, OpGreaterThan, OpLessThan, OpIn, OpNotIn:
		return true
	}
	return false
}

// StateEntry is the recorded response to one node.
type StateEntry struct {
	Response    any       `json:"response"`
	RespondedAt time.Time `json:"respondedAt"`
}

// State maps node ids to their recorded responses.
type State map[string]StateEntry

// Responses flattens the state to node id -> response.
func (s State) Responses() map[string]any {
	out := make(map[string]any, len(s))
	for id, entry := range s {
		out[id] = entry.Response
	}
	return out
}

// Session is one traversal of a flow for a support thread. A completed session stays active.
type Session struct {
	ID                string     `json:"id"`
	ThreadID          string     `json:"threadId"`
	FlowID            string     `json:"flowId"`
	CurrentNodeID     string     `json:"currentNodeId"`
	State             State      `json:"flowState"`
	IsActive          bool       `json:"isActive"`
	StartedAt         time.Time  `json:"startedAt"`
	LastInteractionAt time.Time  `json:"lastInteractionAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// Completed reports whether the session has reached the end of its flow.
func (s *Session) Completed() bool {
	return s.CompletedAt != nil
}

// Response is an append-only audit record of one answered node.
type Response struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	NodeID      string    `json:"nodeId"`
	Value       any       `json:"response"`
	RespondedAt time.Time `json:"respondedAt"`
}

// Progress counts answered question and decision nodes.
type Progress struct {
	Current    int `json:"current"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// NavigationContext is the input to next-node determination.
type NavigationContext struct {
	Flow        *Definition
	CurrentNode *Node
	State       State
}

// NextResult is the outcome of next-node determination. Error is set only for the
// terminal "no next step" state, which also reports Completed.
type NextResult struct {
	Next      *Node
	Completed bool
	Error     string
}

// ValidationResult is the outcome of response validation.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}
