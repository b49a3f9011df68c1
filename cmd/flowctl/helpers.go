package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Revoa-ux/revoa-app-sub007/services/flow"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	good    = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	bad     = color.New(color.FgRed)
)

// loadDefinitions reads the --flows file, or the built-in flows when it is unset.
func loadDefinitions(cmd *cobra.Command) ([]flow.Definition, error) {
	path, _ := cmd.Flags().GetString("flows")
	if path == "" {
		return flow.DefaultDefinitions()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open flows: %w", err)
	}
	defer f.Close()
	return flow.LoadDefinitions(f)
}
