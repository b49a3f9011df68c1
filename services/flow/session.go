package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Revoa-ux/revoa-app-sub007/pkg/events"
	"github.com/Revoa-ux/revoa-app-sub007/services/decision"
	"github.com/Revoa-ux/revoa-app-sub007/services/escalation"
	"github.com/Revoa-ux/revoa-app-sub007/services/flowcontext"
)

// Dependencies are the collaborators of a Manager. Catalog and Sessions are required;
// the rest fall back to no-ops when nil.
type Dependencies struct {
	Catalog   Catalog
	Sessions  SessionStore
	Responses ResponseLog
	Analytics Analytics
	Contexts  ContextProvider
	Escalator Escalator
	Publisher events.Publisher
	Decisions *decision.Engine
	Now       func() time.Time
}

// Manager owns the session lifecycle: start, respond, restart and deactivate.
type Manager struct {
	catalog   Catalog
	sessions  SessionStore
	responses ResponseLog
	analytics Analytics
	contexts  ContextProvider
	escalator Escalator
	publisher events.Publisher
	decisions *decision.Engine
	now       func() time.Time
}

// NewManager creates a Manager from its dependencies.
func NewManager(deps Dependencies) *Manager {
	m := &Manager{
		catalog:   deps.Catalog,
		sessions:  deps.Sessions,
		responses: deps.Responses,
		analytics: deps.Analytics,
		contexts:  deps.Contexts,
		escalator: deps.Escalator,
		publisher: deps.Publisher,
		decisions: deps.Decisions,
		now:       deps.Now,
	}
	if m.decisions == nil {
		m.decisions = decision.NewEngine()
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	return m
}

// Step is the outcome of a session transition.
type Step struct {
	Session    *Session           `json:"session"`
	Node       *Node              `json:"node,omitempty"`
	Completed  bool               `json:"completed"`
	Decision   *decision.Decision `json:"decision,omitempty"`
	Escalation *escalation.Record `json:"escalation,omitempty"`
}

// Start begins a new session for the thread at the flow's start node, superseding any
// active session of that thread.
func (m *Manager) Start(ctx context.Context, threadID, flowID string) (*Step, error) {
	def, err := m.loadFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}
	start, err := GetStartNode(def)
	if err != nil {
		return nil, err
	}

	existing, err := m.sessions.ActiveSessionForThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	if existing != nil {
		existing.IsActive = false
		if err := m.sessions.UpdateSession(ctx, existing); err != nil {
			return nil, fmt.Errorf("deactivate session: %w", err)
		}
		slog.Info("Superseded active session", "sessionId", existing.ID, "threadId", threadID)
	}

	now := m.now()
	sess := &Session{
		ID:                uuid.New().String(),
		ThreadID:          threadID,
		FlowID:            def.ID,
		CurrentNodeID:     start.ID,
		State:             State{},
		IsActive:          true,
		StartedAt:         now,
		LastInteractionAt: now,
	}
	if err := m.sessions.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	slog.Info("Flow session started", "sessionId", sess.ID, "threadId", threadID, "flowId", def.ID)
	m.record(ctx, def.ID, start.ID, MetricView, nil)
	return &Step{Session: sess, Node: start}, nil
}

// Respond records a response to the session's current node and advances it. A response that
// fails validation returns a *ValidationError and leaves the session untouched.
func (m *Manager) Respond(ctx context.Context, sessionID string, value any) (*Step, error) {
	sess, def, node, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if res := ValidateResponse(node, value); !res.Valid {
		return nil, &ValidationError{NodeID: node.ID, Message: res.Error}
	}

	step := &Step{Session: sess}
	var fc *flowcontext.FlowContext

	var next *Node
	if damageType, ok := value.(string); ok && node.Metadata.AutoRoute {
		fc = m.flowContext(ctx, sess, def)
		dec := m.decisions.Decide(damageType, &fc.Warranty)
		step.Decision = &dec
		if dec.ShouldAutoRoute {
			next = def.NodeByID(routeTarget(node, dec.Target))
			if next == nil {
				slog.Warn("Auto-route target not in flow", "flowId", def.ID, "node", node.ID, "target", dec.Target)
			}
		}
	}

	completed := false
	if next == nil {
		res := DetermineNextNode(NavigationContext{Flow: def, CurrentNode: node, State: sess.State}, value)
		if res.Error != "" {
			return nil, fmt.Errorf("flow %q node %q: %w", def.ID, node.ID, ErrNoNextStep)
		}
		next = res.Next
		completed = res.Completed
	}

	now := m.now()
	if node.Type != NodeInfo && value != nil {
		if m.responses != nil {
			err := m.responses.AppendResponse(ctx, &Response{
				ID:          uuid.New().String(),
				SessionID:   sess.ID,
				NodeID:      node.ID,
				Value:       value,
				RespondedAt: now,
			})
			if err != nil {
				return nil, fmt.Errorf("append response: %w", err)
			}
		}
		if sess.State == nil {
			sess.State = State{}
		}
		sess.State[node.ID] = StateEntry{Response: value, RespondedAt: now}
	}
	if next != nil {
		sess.CurrentNodeID = next.ID
	}
	sess.LastInteractionAt = now

	newlyCompleted := completed && sess.CompletedAt == nil
	if newlyCompleted {
		sess.CompletedAt = &now
	}

	if err := m.sessions.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	m.record(ctx, def.ID, node.ID, MetricResponse, nil)
	if next != nil {
		m.record(ctx, def.ID, next.ID, MetricView, nil)
		step.Node = next
		if next.Metadata.RequiresAgentAction {
			if fc == nil {
				fc = m.flowContext(ctx, sess, def)
			}
			step.Escalation = m.escalate(ctx, sess, next, fc)
		}
	}

	if completed {
		step.Completed = true
		if newlyCompleted {
			elapsed := int(now.Sub(sess.StartedAt).Seconds())
			m.record(ctx, def.ID, node.ID, MetricCompletion, &elapsed)
			m.publish(ctx, events.New(events.TypeFlowCompleted, map[string]any{
				"sessionId":      sess.ID,
				"threadId":       sess.ThreadID,
				"flowId":         def.ID,
				"elapsedSeconds": elapsed,
			}))
			slog.Info("Flow session completed", "sessionId", sess.ID, "flowId", def.ID, "elapsedSeconds", elapsed)
		}
	}
	return step, nil
}

// Restart rewinds an in-progress session to the start node with empty state.
func (m *Manager) Restart(ctx context.Context, sessionID string) (*Step, error) {
	sess, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.CompletedAt != nil {
		return nil, ErrSessionCompleted
	}
	def, err := m.loadFlow(ctx, sess.FlowID)
	if err != nil {
		return nil, err
	}
	start, err := GetStartNode(def)
	if err != nil {
		return nil, err
	}

	sess.CurrentNodeID = start.ID
	sess.State = State{}
	sess.CompletedAt = nil
	sess.IsActive = true
	sess.LastInteractionAt = m.now()
	if err := m.sessions.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("restart session: %w", err)
	}

	m.record(ctx, def.ID, start.ID, MetricView, nil)
	return &Step{Session: sess, Node: start}, nil
}

// Deactivate marks a session inactive.
func (m *Manager) Deactivate(ctx context.Context, sessionID string) error {
	sess, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	sess.IsActive = false
	if err := m.sessions.UpdateSession(ctx, sess); err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	return nil
}

// ActiveForThread returns the thread's active session, or nil.
func (m *Manager) ActiveForThread(ctx context.Context, threadID string) (*Session, error) {
	sess, err := m.sessions.ActiveSessionForThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return sess, nil
}

// View is a session's current node rendered for display.
type View struct {
	Session   *Session           `json:"session"`
	Node      *Node              `json:"node"`
	Content   Content            `json:"content"`
	Progress  Progress           `json:"progress"`
	Completed bool               `json:"completed"`
	HasOrder  bool               `json:"hasOrder"`
	Guidance  *decision.Guidance `json:"guidance,omitempty"`
}

// View renders the session's current node with the thread's order context.
func (m *Manager) View(ctx context.Context, sessionID string) (*View, error) {
	sess, def, node, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	fc := m.flowContext(ctx, sess, def)
	v := &View{
		Session: sess,
		Node:    node,
		Content: Content{
			Title: flowcontext.Render(node.Content.Title, fc),
			Body:  flowcontext.Render(node.Content.Body, fc),
		},
		Progress:  GetProgress(def, sess.State),
		Completed: sess.Completed(),
		HasOrder:  fc.HasOrder,
	}
	if node.Metadata.ShowGuidance {
		g := m.decisions.GetResolutionGuidance(damageTypeOf(def, sess.State), &fc.Warranty)
		v.Guidance = &g
	}
	return v, nil
}

// Recommendation pairs a routing decision with resolution guidance.
type Recommendation struct {
	Decision decision.Decision `json:"decision"`
	Guidance decision.Guidance `json:"guidance"`
	HasOrder bool              `json:"hasOrder"`
}

// Recommend evaluates a damage classification against the thread's warranty context.
func (m *Manager) Recommend(ctx context.Context, threadID, selectedItemID, damageType string) Recommendation {
	fc := flowcontext.Empty()
	if m.contexts != nil {
		fc = m.contexts.Build(ctx, threadID, selectedItemID)
	}
	return Recommendation{
		Decision: m.decisions.Decide(damageType, &fc.Warranty),
		Guidance: m.decisions.GetResolutionGuidance(damageType, &fc.Warranty),
		HasOrder: fc.HasOrder,
	}
}

func (m *Manager) load(ctx context.Context, sessionID string) (*Session, *Definition, *Node, error) {
	sess, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return nil, nil, nil, err
	}
	def, err := m.loadFlow(ctx, sess.FlowID)
	if err != nil {
		return nil, nil, nil, err
	}
	node := def.NodeByID(sess.CurrentNodeID)
	if node == nil {
		return nil, nil, nil, fmt.Errorf("node %q: %w", sess.CurrentNodeID, ErrNodeNotFound)
	}
	return sess, def, node, nil
}

func (m *Manager) loadSession(ctx context.Context, id string) (*Session, error) {
	sess, err := m.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (m *Manager) loadFlow(ctx context.Context, id string) (*Definition, error) {
	def, err := m.catalog.GetFlow(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get flow: %w", err)
	}
	if def == nil {
		return nil, ErrFlowNotFound
	}
	return def, nil
}

func (m *Manager) flowContext(ctx context.Context, sess *Session, def *Definition) *flowcontext.FlowContext {
	if m.contexts == nil {
		return flowcontext.Empty()
	}
	return m.contexts.Build(ctx, sess.ThreadID, selectedItemOf(def, sess.State))
}

func (m *Manager) escalate(ctx context.Context, sess *Session, node *Node, fc *flowcontext.FlowContext) *escalation.Record {
	if m.escalator == nil {
		return nil
	}
	req := escalation.Request{
		ThreadID:       sess.ThreadID,
		SessionID:      sess.ID,
		FlowID:         sess.FlowID,
		NodeID:         node.ID,
		EscalationType: node.Metadata.EscalationType,
		Priority:       node.Metadata.EscalationPriority,
		FlowState:      sess.State.Responses(),
	}
	if fc.HasOrder && fc.Order != nil {
		req.OrderID = fc.Order.ID
		req.OrderNumber = fc.Order.OrderNumber
	}

	rec, err := m.escalator.Trigger(ctx, req)
	if err != nil {
		slog.Error("Failed to trigger escalation", "sessionId", sess.ID, "node", node.ID, "error", err)
		return nil
	}
	return rec
}

func (m *Manager) record(ctx context.Context, flowID, nodeID string, metric Metric, elapsed *int) {
	if m.analytics == nil {
		return
	}
	if err := m.analytics.Record(ctx, flowID, nodeID, metric, elapsed); err != nil {
		slog.Warn("Failed to record analytics", "flowId", flowID, "node", nodeID, "metric", metric, "error", err)
	}
}

func (m *Manager) publish(ctx context.Context, evt events.Event) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, evt); err != nil {
		slog.Warn("Failed to publish event", "type", evt.Type, "error", err)
	}
}

func routeTarget(node *Node, target string) string {
	if id, ok := node.Metadata.RouteTargets[target]; ok {
		return id
	}
	return target
}

// selectedItemOf returns the line item chosen earlier in the session, if any.
func selectedItemOf(def *Definition, state State) string {
	for _, n := range def.Nodes {
		if !n.Metadata.SelectsLineItem {
			continue
		}
		if id, ok := state[n.ID].Response.(string); ok {
			return id
		}
	}
	return ""
}

func damageTypeOf(def *Definition, state State) string {
	for _, n := range def.Nodes {
		if !n.Metadata.AutoRoute {
			continue
		}
		if dt, ok := state[n.ID].Response.(string); ok {
			return dt
		}
	}
	return ""
}
