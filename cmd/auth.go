package cmd

import (
	"github.com/spf13/cobra"

	"github.com/neoromantic/telegram-sync-cli/internal/apperror"
)

// authCmd's verbs are listed in the CLI surface (spec §6) but the login
// flow itself is an external collaborator this core does not implement
// (spec §1): authentication belongs to the remote transport, not the
// sync/queue/cache core. Each verb reports AUTH_REQUIRED rather than
// silently no-opping.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate an account (implemented by the remote transport)",
}

func authNotImplemented(cmd *cobra.Command, args []string) error {
	return apperror.New(apperror.CodeAuthRequired,
		"authentication is handled by the remote transport, not this core")
}

var (
	authLoginCmd   = &cobra.Command{Use: "login", Short: "Start an interactive login", RunE: authNotImplemented}
	authLoginQRCmd = &cobra.Command{Use: "login-qr", Short: "Start a QR-code login", RunE: authNotImplemented}
	authLogoutCmd  = &cobra.Command{Use: "logout", Short: "Drop the active session", RunE: authNotImplemented}
	authStatusCmd  = &cobra.Command{Use: "status", Short: "Report session auth state", RunE: authNotImplemented}
)

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd, authLoginQRCmd, authLogoutCmd, authStatusCmd)
}
