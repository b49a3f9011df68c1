package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Revoa-ux/revoa-app-sub007/services/decision"
	"github.com/Revoa-ux/revoa-app-sub007/services/warranty"
)

func newDecideCmd() *cobra.Command {
	var (
		damageType string
		status     string
		covers     bool
		noOrder    bool
	)
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Show the routing decision and guidance for a damage type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			wc := warranty.NoOrder()
			if !noOrder {
				wc = warranty.Context{
					HasOrder:            true,
					OrderWarrantyStatus: warranty.OrderStatus(status),
					ProductCoverages:    warranty.Coverages{Damaged: covers},
				}
			}

			engine := decision.NewEngine()
			d := engine.Decide(damageType, &wc)
			g := engine.GetResolutionGuidance(damageType, &wc)

			out := cmd.OutOrStdout()
			heading.Fprintln(out, "Decision")
			if d.ShouldAutoRoute {
				good.Fprintf(out, "  route to %s", d.Target)
			} else {
				warn.Fprint(out, "  no auto-route")
			}
			fmt.Fprintf(out, " (%s confidence)\n  %s\n", d.Confidence, d.Reason)

			heading.Fprintln(out, "Guidance")
			fmt.Fprintf(out, "  resolution: %s\n  urgency:    %s\n", g.Resolution, g.Urgency)
			for _, s := range g.NextSteps {
				fmt.Fprintf(out, "  - %s\n", s)
			}
			if len(g.TemplateSuggestions) > 0 {
				fmt.Fprintf(out, "  templates:  %s\n", strings.Join(g.TemplateSuggestions, ", "))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&damageType, "damage-type", "", "Damage classification, e.g. manufacturing_defect (required)")
	f.StringVar(&status, "warranty-status", string(warranty.OrderActive), "Order warranty status: active, expired, mixed or none")
	f.BoolVar(&covers, "covers-damage", true, "Whether any line item's warranty covers damaged items")
	f.BoolVar(&noOrder, "no-order", false, "Evaluate as if the thread had no order")
	_ = cmd.MarkFlagRequired("damage-type")
	return cmd
}
