package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print pg-rebuild-table version and supported Postgres versions",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pg-rebuild-table %s (commit: %s, built: %s)\n\n", Version, CommitSHA, BuildDate)
		fmt.Fprintln(out, "Supported Postgres versions:")
		fmt.Fprintln(out, "  • Postgres 12 – 17")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Declarative partitioning (attach/detach) requires Postgres 11+.")
		fmt.Fprintln(out, "Legacy inheritance-based partitioning is supported on all listed versions.")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
