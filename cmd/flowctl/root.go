package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "flowctl",
		Short: "Inspect and dry-run merchant support flows",
		Long:  "flowctl walks support flows, checks flow files and evaluates the\nwarranty, decision and trigger tables without a database.",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Version = version
	root.PersistentFlags().String("flows", "", "YAML file of flow definitions (defaults to the built-in flows)")

	root.AddCommand(newSimulateCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newWarrantyCmd())
	root.AddCommand(newDecideCmd())
	root.AddCommand(newMatchCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
