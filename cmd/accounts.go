package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/neoromantic/telegram-sync-cli/internal/apperror"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage synced accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every configured account",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openAccountsRepo()
		if err != nil {
			return err
		}
		accs, err := repo.List(cmd.Context())
		if err != nil {
			return err
		}
		printResult(accs)
		return nil
	},
}

var accountsSetActiveCmd = &cobra.Command{
	Use:   "set-active <id>",
	Short: "Select the active account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return apperror.Wrap(apperror.CodeInvalidArgs, "account id must be an integer", err)
		}
		repo, err := openAccountsRepo()
		if err != nil {
			return err
		}
		if err := repo.SetActive(cmd.Context(), id); err != nil {
			return apperror.Wrap(apperror.CodeAccountNotFound, "account not found", err)
		}
		printResult(map[string]any{"active_account": id})
		return nil
	},
}

var accountsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove an account and its cached session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return apperror.Wrap(apperror.CodeInvalidArgs, "account id must be an integer", err)
		}
		repo, err := openAccountsRepo()
		if err != nil {
			return err
		}
		if err := repo.Delete(cmd.Context(), id); err != nil {
			return err
		}
		printResult(map[string]any{"deleted": id})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd, accountsSetActiveCmd, accountsDeleteCmd)
}
