package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/neoromantic/telegram-sync-cli/internal/apperror"
)

var apiJSONArg string

// apiCmd is an escape hatch onto the remote transport's raw method
// surface (spec §6: "api <method> [--json ...]"). The transport itself
// is out of scope for this core (spec §1), so the verb exists and
// validates its input but has nowhere to dispatch the call.
var apiCmd = &cobra.Command{
	Use:   "api <method>",
	Short: "Invoke a raw remote API method",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if apiJSONArg != "" {
			var payload map[string]any
			if err := json.Unmarshal([]byte(apiJSONArg), &payload); err != nil {
				return apperror.Wrap(apperror.CodeInvalidArgs, "--json must be a valid JSON object", err)
			}
		}
		return apperror.New(apperror.CodeNetwork, "raw API calls require a remote transport, none is configured")
	},
}

func init() {
	apiCmd.Flags().StringVar(&apiJSONArg, "json", "", "JSON-encoded method arguments")
	rootCmd.AddCommand(apiCmd)
}
