package cmd

import "github.com/spf13/cobra"

// statusCmd is a top-level convenience alias for "daemon status"
// (spec §6 lists both surfaces).
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report daemon status (alias of \"daemon status\")",
	RunE:  runDaemonStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
