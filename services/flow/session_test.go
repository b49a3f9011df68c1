package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Revoa-ux/revoa-app-sub007/pkg/events"
	"github.com/Revoa-ux/revoa-app-sub007/services/decision"
	"github.com/Revoa-ux/revoa-app-sub007/services/escalation"
	"github.com/Revoa-ux/revoa-app-sub007/services/flowcontext"
	"github.com/Revoa-ux/revoa-app-sub007/services/warranty"
)

// stubContexts implements ContextProvider with a fixed context.
type stubContexts struct {
	fc       *flowcontext.FlowContext
	selected []string
}

func (s *stubContexts) Build(_ context.Context, _ string, selectedItemID string) *flowcontext.FlowContext {
	s.selected = append(s.selected, selectedItemID)
	if s.fc == nil {
		return flowcontext.Empty()
	}
	return s.fc
}

// stubEscalator records escalation requests.
type stubEscalator struct {
	requests []escalation.Request
	err      error
}

func (s *stubEscalator) Trigger(_ context.Context, req escalation.Request) (*escalation.Record, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &escalation.Record{ID: "esc-1", ThreadID: req.ThreadID, EscalationType: req.EscalationType, Status: escalation.StatusTriggered}, nil
}

type failingAnalytics struct{}

func (failingAnalytics) Record(context.Context, string, string, Metric, *int) error {
	return errors.New("analytics down")
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	p.events = append(p.events, evt)
	return nil
}

func activeOrderContext() *flowcontext.FlowContext {
	return &flowcontext.FlowContext{
		HasOrder: true,
		Order:    &flowcontext.Order{ID: "order-1", OrderNumber: "1001", CustomerName: "Dana"},
		Warranty: warranty.Context{
			HasOrder:            true,
			OrderWarrantyStatus: warranty.OrderActive,
			ProductCoverages:    warranty.Coverages{Damaged: true},
		},
		DynamicContent: flowcontext.DynamicContent{WarrantySummary: "Lamp: Warranty active", OrderSummary: "Order #1001"},
	}
}

type harness struct {
	store     *MemoryStore
	contexts  *stubContexts
	escalator *stubEscalator
	publisher *recordingPublisher
	manager   *Manager
	clock     time.Time
}

func newHarness(t *testing.T, defs ...Definition) *harness {
	t.Helper()
	if len(defs) == 0 {
		var err error
		defs, err = DefaultDefinitions()
		require.NoError(t, err)
		defs = append(defs, *testDefinition())
	}

	h := &harness{
		store:     NewMemoryStore(defs...),
		contexts:  &stubContexts{fc: activeOrderContext()},
		escalator: &stubEscalator{},
		publisher: &recordingPublisher{},
		clock:     time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC),
	}
	h.manager = NewManager(Dependencies{
		Catalog:   h.store,
		Sessions:  h.store,
		Responses: h.store,
		Analytics: h.store,
		Contexts:  h.contexts,
		Escalator: h.escalator,
		Publisher: h.publisher,
		Decisions: decision.NewEngine(),
		Now: func() time.Time {
			h.clock = h.clock.Add(30 * time.Second)
			return h.clock
		},
	})
	return h
}

func (h *harness) respond(t *testing.T, sessionID string, value any) *Step {
	t.Helper()
	step, err := h.manager.Respond(context.Background(), sessionID, value)
	require.NoError(t, err)
	return step
}

func TestStart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	step, err := h.manager.Start(ctx, "thread-1", "test-flow")
	require.NoError(t, err)
	assert.Equal(t, "intro", step.Node.ID)
	assert.Equal(t, "intro", step.Session.CurrentNodeID)
	assert.True(t, step.Session.IsActive)
	assert.Empty(t, step.Session.State)
	assert.Nil(t, step.Session.CompletedAt)
	assert.Equal(t, 1, h.store.Count("test-flow", "intro", MetricView))
}

func TestStart_SupersedesActiveSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.manager.Start(ctx, "thread-1", "test-flow")
	require.NoError(t, err)
	second, err := h.manager.Start(ctx, "thread-1", "shipping-delay")
	require.NoError(t, err)

	old, err := h.store.GetSession(ctx, first.Session.ID)
	require.NoError(t, err)
	assert.False(t, old.IsActive)

	active, err := h.manager.ActiveForThread(ctx, "thread-1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.Session.ID, active.ID)
}

func TestStart_ConfigurationErrors(t *testing.T) {
	broken := *testDefinition()
	broken.ID = "broken"
	broken.StartNodeID = "missing"
	h := newHarness(t, *testDefinition(), broken)

	_, err := h.manager.Start(context.Background(), "thread-1", "unknown")
	assert.ErrorIs(t, err, ErrFlowNotFound)

	_, err = h.manager.Start(context.Background(), "thread-1", "broken")
	assert.ErrorIs(t, err, ErrNoStartNode)
}

func TestRespond_ValidationErrorLeavesSessionUntouched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	start, err := h.manager.Start(ctx, "thread-1", "test-flow")
	require.NoError(t, err)
	h.respond(t, start.Session.ID, nil)

	_, err = h.manager.Respond(ctx, start.Session.ID, "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "order_value", verr.NodeID)
	assert.Equal(t, "Enter the order value", verr.Message)

	sess, err := h.store.GetSession(ctx, start.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "order_value", sess.CurrentNodeID)
	assert.Empty(t, sess.State)
	assert.Empty(t, h.store.Responses(start.Session.ID))
}

func TestRespond_NavigatesAndPersists(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	start, err := h.manager.Start(ctx, "thread-1", "test-flow")
	require.NoError(t, err)
	id := start.Session.ID

	step := h.respond(t, id, nil)
	assert.Equal(t, "order_value", step.Node.ID)
	assert.NotContains(t, step.Session.State, "intro", "info nodes are not persisted")

	step = h.respond(t, id, 40.0)
	assert.Equal(t, "reason", step.Node.ID)
	assert.Equal(t, 40.0, step.Session.State["order_value"].Response)

	step = h.respond(t, id, "cracked")
	assert.Equal(t, "done", step.Node.ID)
	assert.False(t, step.Completed)

	step = h.respond(t, id, nil)
	assert.True(t, step.Completed)
	assert.Nil(t, step.Node)
	require.NotNil(t, step.Session.CompletedAt)
	assert.True(t, step.Session.IsActive, "completed sessions stay active")

	responses := h.store.Responses(id)
	require.Len(t, responses, 2)
	assert.Equal(t, "order_value", responses[0].NodeID)
	assert.Equal(t, "reason", responses[1].NodeID)

	assert.Equal(t, 1, h.store.Count("test-flow", "order_value", MetricResponse))
	assert.Equal(t, 1, h.store.Count("test-flow", "reason", MetricView))
	assert.Equal(t, 1, h.store.Count("test-flow", "done", MetricCompletion))
	assert.Equal(t, 120, h.store.Count("test-flow", "done", "elapsed_seconds"))

	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, events.TypeFlowCompleted, h.publisher.events[0].Type)
	assert.Equal(t, id, h.publisher.events[0].Data["sessionId"])
}

func TestRespond_CompletedSessionKeepsCompletedAt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	start, err := h.manager.Start(ctx, "thread-1", "test-flow")
	require.NoError(t, err)
	id := start.Session.ID
	h.respond(t, id, nil)
	h.respond(t, id, 40.0)
	h.respond(t, id, "broken")
	first := h.respond(t, id, nil)
	second := h.respond(t, id, nil)

	assert.True(t, second.Completed)
	assert.Equal(t, *first.Session.CompletedAt, *second.Session.CompletedAt)
	assert.Equal(t, 1, h.store.Count("test-flow", "done", MetricCompletion))
}

func TestRespond_NoNextStepIsConfigurationError(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	start, err := h.manager.Start(ctx, "thread-1", "test-flow")
	require.NoError(t, err)
	id := start.Session.ID
	h.respond(t, id, nil)
	h.respond(t, id, 40.0)

	_, err = h.manager.Respond(ctx, id, "scratched")
	assert.ErrorIs(t, err, ErrNoNextStep)

	sess, err := h.store.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "reason", sess.CurrentNodeID)
	assert.NotContains(t, sess.State, "reason")
	assert.Nil(t, sess.CompletedAt)
}

func TestRespond_EscalatesOnAgentActionNode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	start, err := h.manager.Start(ctx, "thread-1", "test-flow")
	require.NoError(t, err)
	h.respond(t, start.Session.ID, nil)

	step := h.respond(t, start.Session.ID, 900.0)
	assert.Equal(t, "approval", step.Node.ID)
	require.NotNil(t, step.Escalation)

	require.Len(t, h.escalator.requests, 1)
	req := h.escalator.requests[0]
	assert.Equal(t, "thread-1", req.ThreadID)
	assert.Equal(t, "approval", req.NodeID)
	assert.Equal(t, "order-1", req.OrderID)
	assert.Equal(t, "1001", req.OrderNumber)
	assert.Equal(t, 900.0, req.FlowState["order_value"])
}

func TestRespond_EscalationFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	h.escalator.err = errors.New("escalation store down")
	ctx := context.Background()

	start, err := h.manager.Start(ctx, "thread-1", "test-flow")
	require.NoError(t, err)
	h.respond(t, start.Session.ID, nil)

	step := h.respond(t, start.Session.ID, 900.0)
	assert.Equal(t, "approval", step.Node.ID)
	assert.Nil(t, step.Escalation)
	assert.Equal(t, "approval", step.Session.CurrentNodeID)
}

func TestRespond_AnalyticsFailureIsSwallowed(t *testing.T) {
	store := NewMemoryStore(*testDefinition())
	m := NewManager(Dependencies{Catalog: store, Sessions: store, Analytics: failingAnalytics{}})
	ctx := context.Background()

	start, err := m.Start(ctx, "thread-1", "test-flow")
	require.NoError(t, err)
	step, err := m.Respond(ctx, start.Session.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "order_value", step.Node.ID)
}

func TestRespond_MissingSessionAndNode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.manager.Respond(ctx, "missing", "x")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	start, err := h.manager.Start(ctx, "thread-1", "test-flow")
	require.NoError(t, err)
	sess := start.Session
	sess.CurrentNodeID = "deleted-node"
	require.NoError(t, h.store.UpdateSession(ctx, sess))

	_, err = h.manager.Respond(ctx, sess.ID, "x")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestRespond_AutoRoutesDamageClaim(t *testing.T) {
	tests := []struct {
		name       string
		fc         *flowcontext.FlowContext
		damageType string
		wantNode   string
	}{
		{"shipping damage", activeOrderContext(), decision.DamageShipping, "tracking_number"},
		{"customer caused", activeOrderContext(), decision.DamageCustomer, "not_covered"},
		{"unclear", activeOrderContext(), decision.DamageUnclear, "defect_description"},
		{"manufacturing with active warranty", activeOrderContext(), decision.DamageManufacturing, "warranty_replacement"},
		{"manufacturing without order", nil, decision.DamageManufacturing, "defect_description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.contexts.fc = tt.fc
			ctx := context.Background()

			start, err := h.manager.Start(ctx, "thread-1", "damage-claim")
			require.NoError(t, err)
			id := start.Session.ID
			h.respond(t, id, nil)
			h.respond(t, id, "li-1")

			step := h.respond(t, id, tt.damageType)
			require.NotNil(t, step.Node)
			assert.Equal(t, tt.wantNode, step.Node.ID)
			require.NotNil(t, step.Decision)
			assert.Equal(t, tt.damageType, step.Session.State["damage_type"].Response)
			assert.Contains(t, h.contexts.selected, "li-1")
		})
	}
}

func TestRespond_DamageClaimEscalatesFactoryReview(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	start, err := h.manager.Start(ctx, "thread-1", "damage-claim")
	require.NoError(t, err)
	id := start.Session.ID
	h.respond(t, id, nil)
	h.respond(t, id, "li-1")
	h.respond(t, id, decision.DamageUnclear)

	step := h.respond(t, id, "The lamp flickers after a few minutes")
	assert.Equal(t, "factory_review", step.Node.ID)
	require.Len(t, h.escalator.requests, 1)
	req := h.escalator.requests[0]
	assert.Equal(t, escalation.TypeFactoryIssue, req.EscalationType)
	assert.Equal(t, "normal", req.Priority)
	assert.Equal(t, "li-1", req.FlowState["select_product"])
}

func TestRestart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	start, err := h.manager.Start(ctx, "thread-1", "test-flow")
	require.NoError(t, err)
	id := start.Session.ID
	h.respond(t, id, nil)
	h.respond(t, id, 40.0)

	step, err := h.manager.Restart(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "intro", step.Session.CurrentNodeID)
	assert.Empty(t, step.Session.State)
	assert.True(t, step.Session.IsActive)

	def, err := h.store.GetFlow(ctx, "test-flow")
	require.NoError(t, err)
	assert.Equal(t, 0, GetProgress(def, step.Session.State).Current)
}

func TestRestart_CompletedSessionRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	start, err := h.manager.Start(ctx, "thread-1", "test-flow")
	require.NoError(t, err)
	id := start.Session.ID
	h.respond(t, id, nil)
	h.respond(t, id, 40.0)
	h.respond(t, id, "broken")
	h.respond(t, id, nil)

	_, err = h.manager.Restart(ctx, id)
	assert.ErrorIs(t, err, ErrSessionCompleted)

	_, err = h.manager.Restart(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDeactivate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	start, err := h.manager.Start(ctx, "thread-1", "test-flow")
	require.NoError(t, err)
	require.NoError(t, h.manager.Deactivate(ctx, start.Session.ID))

	active, err := h.manager.ActiveForThread(ctx, "thread-1")
	require.NoError(t, err)
	assert.Nil(t, active)

	assert.ErrorIs(t, h.manager.Deactivate(ctx, "missing"), ErrSessionNotFound)
}

func TestView(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	start, err := h.manager.Start(ctx, "thread-1", "damage-claim")
	require.NoError(t, err)
	id := start.Session.ID

	view, err := h.manager.View(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Hi Dana, let's sort out the damaged item on #1001.\nOrder #1001", view.Content.Body)
	assert.True(t, view.HasOrder)
	assert.Nil(t, view.Guidance)

	h.respond(t, id, nil)
	h.respond(t, id, "li-1")
	h.respond(t, id, decision.DamageManufacturing)

	view, err = h.manager.View(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "warranty_replacement", view.Node.ID)
	assert.Equal(t, "Lamp: Warranty active", view.Content.Body)
	require.NotNil(t, view.Guidance)
	assert.Equal(t, decision.ResolutionFreeReplacement, view.Guidance.Resolution)
	assert.Equal(t, 2, view.Progress.Current)
}

func TestView_NoOrderFallsBack(t *testing.T) {
	h := newHarness(t)
	h.contexts.fc = nil
	ctx := context.Background()

	start, err := h.manager.Start(ctx, "thread-1", "shipping-delay")
	require.NoError(t, err)

	view, err := h.manager.View(ctx, start.Session.ID)
	require.NoError(t, err)
	assert.False(t, view.HasOrder)
	assert.Equal(t, flowcontext.NoOrderMessage, view.Content.Body)
}

func TestRecommend(t *testing.T) {
	h := newHarness(t)

	rec := h.manager.Recommend(context.Background(), "thread-1", "", decision.DamageManufacturing)
	assert.True(t, rec.HasOrder)
	assert.Equal(t, decision.TargetWarrantyActive, rec.Decision.Target)
	assert.Equal(t, decision.ConfidenceHigh, rec.Decision.Confidence)

	h.contexts.fc = nil
	rec = h.manager.Recommend(context.Background(), "thread-1", "", decision.DamageManufacturing)
	assert.False(t, rec.Decision.ShouldAutoRoute)
	assert.Equal(t, decision.ConfidenceLow, rec.Decision.Confidence)
}
