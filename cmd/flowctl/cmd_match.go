package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Revoa-ux/revoa-app-sub007/services/trigger"
)

func newMatchCmd() *cobra.Command {
	var tag, title, rulesPath string
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Classify a thread tag or title against the trigger table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tag == "" && title == "" {
				return fmt.Errorf("one of --tag or --title is required")
			}
			rules, err := loadRules(rulesPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			m := trigger.Classify(rules, tag, title)
			if m == nil {
				warn.Fprintln(out, "No matching category")
				return nil
			}
			good.Fprintf(out, "%s", m.Category)
			fmt.Fprintf(out, " (matched by %s, auto-start %t)\n", m.MatchedBy, m.AutoStart)

			defs, err := loadDefinitions(cmd)
			if err != nil {
				return err
			}
			for _, d := range defs {
				if d.Category == m.Category && d.IsActive {
					fmt.Fprintf(out, "  flow %s v%d: %s\n", d.ID, d.Version, d.Name)
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&tag, "tag", "", "Thread tag")
	f.StringVar(&title, "title", "", "Thread title")
	f.StringVar(&rulesPath, "rules", "", "YAML trigger table (defaults to the built-in table)")
	return cmd
}

func loadRules(path string) ([]trigger.Rule, error) {
	if path == "" {
		return trigger.DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return trigger.LoadRules(data)
}
