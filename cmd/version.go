package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// these will be overridden at build time using -ldflags
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

// versionCmd prints linefile version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show linefile version information",
	Long:  `Displays the current version, git commit, and build date for linefile.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "linefile %s (commit %s, built %s)\n", version, commit, date)
	},
}
