package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/gradeval/internal/ruleset"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "gradeval", version)
		fmt.Fprintf(cmd.OutOrStdout(), "rule documents: %s.x\n", ruleset.SupportedMajor)
	},
}
