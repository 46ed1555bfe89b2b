package cmd

import (
	"github.com/spf13/cobra"

	"github.com/neoromantic/telegram-sync-cli/internal/apperror"
)

// userCmd (aliased "me") reports the active account's identity — the
// local analogue of a remote "get self" call, served from the accounts
// store rather than a fresh remote fetch (spec §6).
var userCmd = &cobra.Command{
	Use:     "user",
	Aliases: []string{"me"},
	Short:   "Show the active account",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openAccountsRepo()
		if err != nil {
			return err
		}
		acc, err := repo.GetActive(cmd.Context())
		if err != nil {
			return err
		}
		if acc == nil {
			return apperror.New(apperror.CodeNoActiveAccount, "no active account selected")
		}
		printResult(acc)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
}
