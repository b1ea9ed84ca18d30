// Package cli implements the eligo command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

// SetVersion records the build version injected by the linker.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "eligo",
		Short:         "Vector eligibility analysis for facility siting",
		Long:          "eligo combines a base land area with included, excluded, and restricted geometry layers into eligible and eligible-with-restrictions regions.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAnalyzeCmd())
	return root
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}
