package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Revoa-ux/revoa-app-sub007/services/warranty"
)

const dateLayout = "2006-01-02"

func newWarrantyCmd() *cobra.Command {
	var (
		orderDate string
		today     string
		days      int
	)
	cmd := &cobra.Command{
		Use:   "warranty",
		Short: "Evaluate a warranty term against an order date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ordered, err := time.Parse(dateLayout, orderDate)
			if err != nil {
				return fmt.Errorf("parse --order-date: %w", err)
			}
			ref := time.Now().UTC()
			if today != "" {
				if ref, err = time.Parse(dateLayout, today); err != nil {
					return fmt.Errorf("parse --today: %w", err)
				}
			}

			info := warranty.GetInfo(ordered, days, false, false, false, ref)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Expiry:    %s\n", info.ExpiryDate.Format(dateLayout))
			fmt.Fprintf(out, "Remaining: %d days\n", info.DaysRemaining)
			fmt.Fprint(out, "Status:    ")
			statusColor(info.Status).Fprintln(out, info.Status)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&orderDate, "order-date", "", "Order date, YYYY-MM-DD (required)")
	f.IntVar(&days, "days", 0, "Warranty term in days")
	f.StringVar(&today, "today", "", "Reference day, YYYY-MM-DD (defaults to now)")
	_ = cmd.MarkFlagRequired("order-date")
	return cmd
}

func statusColor(s warranty.Status) *color.Color {
	switch s {
	case warranty.StatusActive:
		return good
	case warranty.StatusExpiringSoon:
		return warn
	case warranty.StatusExpired:
		return bad
	}
	return heading
}
