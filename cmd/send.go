package cmd

import (
	"github.com/spf13/cobra"

	"github.com/neoromantic/telegram-sync-cli/internal/apperror"
)

// sendCmd is listed in the CLI surface (spec §6) but message composition
// beyond a plain send contract is a non-goal (spec §1); the contract
// point exists so callers get a typed error instead of "unknown
// command" while the remote transport doesn't implement it.
var sendCmd = &cobra.Command{
	Use:   "send <chat> <text>",
	Short: "Send a message through the active account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return apperror.New(apperror.CodeNetwork, "sending requires a remote transport, none is configured")
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
