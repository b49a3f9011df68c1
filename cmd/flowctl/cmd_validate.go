package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that flow definitions load and reference existing nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs, err := loadDefinitions(cmd)
			if err != nil {
				bad.Fprintf(cmd.OutOrStdout(), "invalid: %v\n", err)
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range defs {
				good.Fprintf(out, "ok  ")
				fmt.Fprintf(out, "%s v%d (%s) %d nodes\n", d.ID, d.Version, d.Category, len(d.Nodes))
			}
			return nil
		},
	}
}
