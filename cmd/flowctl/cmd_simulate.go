package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Revoa-ux/revoa-app-sub007/services/escalation"
	"github.com/Revoa-ux/revoa-app-sub007/services/flow"
)

// maxSteps stops a simulation that loops through info nodes forever.
const maxSteps = 100

func newSimulateCmd() *cobra.Command {
	var (
		threadID  string
		responses []string
	)
	cmd := &cobra.Command{
		Use:   "simulate <flow-id>",
		Short: "Walk a flow in memory with scripted responses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := loadDefinitions(cmd)
			if err != nil {
				return err
			}
			return simulate(cmd.Context(), cmd.OutOrStdout(), defs, args[0], threadID, responses)
		},
	}
	f := cmd.Flags()
	f.StringVar(&threadID, "thread", "sim-thread", "Thread id the session is opened on")
	f.StringArrayVarP(&responses, "response", "r", nil, "Response for the next question (repeatable)")
	return cmd
}

func simulate(ctx context.Context, out io.Writer, defs []flow.Definition, flowID, threadID string, responses []string) error {
	store := flow.NewMemoryStore(defs...)
	escalations := escalation.NewService(escalation.NewMemoryStore(), nil)
	manager := flow.NewManager(flow.Dependencies{
		Catalog:   store,
		Sessions:  store,
		Responses: store,
		Analytics: store,
		Escalator: escalations,
	})

	step, err := manager.Start(ctx, threadID, flowID)
	if err != nil {
		return fmt.Errorf("start %s: %w", flowID, err)
	}
	heading.Fprintf(out, "Session %s (%s)\n", step.Session.ID, flowID)

	steps := 0
	for !step.Completed {
		if steps >= maxSteps {
			return fmt.Errorf("simulation exceeded maximum of %d steps (possible cycle)", maxSteps)
		}
		steps++

		view, err := manager.View(ctx, step.Session.ID)
		if err != nil {
			return fmt.Errorf("view session: %w", err)
		}
		printNode(out, view)

		var value any
		if node := view.Node; node.Type == flow.NodeQuestion || node.Type == flow.NodeDecision {
			if len(responses) == 0 {
				warn.Fprintf(out, "Stopped at %s: no responses left\n", node.ID)
				return nil
			}
			value, err = parseResponse(node, responses[0])
			if err != nil {
				return err
			}
			responses = responses[1:]
			fmt.Fprintf(out, "  > %v\n", value)
		}

		step, err = manager.Respond(ctx, step.Session.ID, value)
		var verr *flow.ValidationError
		if errors.As(err, &verr) {
			bad.Fprintf(out, "  invalid: %s\n", verr.Message)
			return err
		}
		if err != nil {
			return fmt.Errorf("respond: %w", err)
		}
		if step.Decision != nil {
			fmt.Fprintf(out, "  decision: %s (%s) %s\n", step.Decision.Target, step.Decision.Confidence, step.Decision.Reason)
		}
		if step.Escalation != nil {
			warn.Fprintf(out, "  escalated: %s priority=%s\n", step.Escalation.EscalationType, step.Escalation.Priority)
		}
	}

	progress := flow.GetProgress(mustFlow(defs, flowID), step.Session.State)
	good.Fprintf(out, "Completed in %d steps, %d%% of nodes answered\n", steps, progress.Percentage)
	return nil
}

func printNode(out io.Writer, v *flow.View) {
	heading.Fprintf(out, "[%s] %s\n", v.Node.ID, v.Content.Title)
	if v.Content.Body != "" {
		fmt.Fprintf(out, "  %s\n", v.Content.Body)
	}
	for _, opt := range v.Node.Options {
		fmt.Fprintf(out, "  - %s: %s\n", opt.Value, opt.Label)
	}
}

// parseResponse converts a command-line response to the node's response type.
func parseResponse(node *flow.Node, raw string) (any, error) {
	switch node.ResponseType {
	case "number":
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("node %s expects a number, got %q", node.ID, raw)
		}
		return n, nil
	case "boolean":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("node %s expects true or false, got %q", node.ID, raw)
		}
		return b, nil
	default:
		return raw, nil
	}
}

func mustFlow(defs []flow.Definition, id string) *flow.Definition {
	for i := range defs {
		if defs[i].ID == id {
			return &defs[i]
		}
	}
	return &flow.Definition{}
}
