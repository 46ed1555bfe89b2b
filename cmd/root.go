// Package cmd implements the CLI surface described in spec §6: a
// cobra verb tree whose commands read the local cache store
// (cache-first) and, for the in-scope daemon verbs, drive the
// background sync subsystem directly. Grounded on the teacher's
// cmd/root.go: a bare rootCmd, initFlags() registering persistent
// flags before any subcommand's init() runs, cobra.OnInitialize
// wiring config loading ahead of command bodies.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neoromantic/telegram-sync-cli/internal/config"
)

var (
	cfg         *config.Config
	outputFlag  string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "telegram-sync-cli",
	Short: "Mirror Telegram conversation history into a local cache",
	Long: `telegram-sync-cli continuously mirrors conversation history from a
remote message service into a local embedded relational store, and
serves commands that query that store cache-first.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	initFlags()
	cobra.OnInitialize(initConfig)
}

func initFlags() {
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "format", "f", "json",
		"output format: json|pretty|quiet")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"enable verbose logging")
}

func initConfig() {
	if verboseFlag {
		os.Setenv("VERBOSE", "1")
	}
	loaded, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg = loaded
}

// Execute runs the root command, exiting the process with the
// taxonomy-mapped exit code on failure (spec §6).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(exitCodeFor(err))
	}
}
