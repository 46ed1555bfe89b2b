package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/neoromantic/telegram-sync-cli/internal/apperror"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit config.json",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the resolved config.json path",
	RunE: func(cmd *cobra.Command, args []string) error {
		printResult(map[string]any{"path": cfg.Paths.ConfigJSONPath()})
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print the merged configuration, or one dotted key",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			printResult(cfg)
			return nil
		}
		value, ok := lookupConfigKey(args[0])
		if !ok {
			return apperror.New(apperror.CodeInvalidArgs, "unknown config key: "+args[0])
		}
		printResult(map[string]any{args[0]: value})
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write one key into config.json (persisted, merged on next load)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Paths.ConfigJSONPath()
		raw := map[string]any{}
		if data, err := os.ReadFile(path); err == nil {
			_ = json.Unmarshal(data, &raw)
		}
		if err := setDottedKey(raw, args[0], args[1]); err != nil {
			return apperror.Wrap(apperror.CodeInvalidArgs, "invalid config key", err)
		}
		out, err := json.MarshalIndent(raw, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return apperror.Wrap(apperror.CodeGeneral, "writing config.json", err)
		}
		printResult(map[string]any{"key": args[0], "value": args[1]})
		return nil
	},
}

// lookupConfigKey resolves a small set of dotted paths against the
// already-merged Config, the keys config.json itself accepts (spec §6).
func lookupConfigKey(key string) (any, bool) {
	switch key {
	case "cache.staleness.peers":
		return cfg.Cache.StalenessPeers, true
	case "cache.staleness.dialogs":
		return cfg.Cache.StalenessDialogs, true
	case "cache.staleness.fullInfo":
		return cfg.Cache.StalenessFullInfo, true
	case "cache.backgroundRefresh":
		return cfg.Cache.BackgroundRefresh, true
	case "cache.maxCacheAge":
		return cfg.Cache.MaxCacheAge, true
	case "activeAccount":
		return nil, false // resolved from accounts.db, not config.json
	default:
		return nil, false
	}
}

// setDottedKey mutates the raw config.json document at one of the
// dotted paths lookupConfigKey knows about.
func setDottedKey(raw map[string]any, key, value string) error {
	switch key {
	case "cache.staleness.peers", "cache.staleness.dialogs", "cache.staleness.fullInfo":
		cache, _ := raw["cache"].(map[string]any)
		if cache == nil {
			cache = map[string]any{}
		}
		staleness, _ := cache["staleness"].(map[string]any)
		if staleness == nil {
			staleness = map[string]any{}
		}
		leaf := map[string]string{
			"cache.staleness.peers":    "peers",
			"cache.staleness.dialogs":  "dialogs",
			"cache.staleness.fullInfo": "fullInfo",
		}[key]
		staleness[leaf] = value
		cache["staleness"] = staleness
		raw["cache"] = cache
	case "cache.maxCacheAge":
		cache, _ := raw["cache"].(map[string]any)
		if cache == nil {
			cache = map[string]any{}
		}
		cache["maxCacheAge"] = value
		raw["cache"] = cache
	case "cache.backgroundRefresh":
		cache, _ := raw["cache"].(map[string]any)
		if cache == nil {
			cache = map[string]any{}
		}
		cache["backgroundRefresh"] = value == "true"
		raw["cache"] = cache
	default:
		return apperror.New(apperror.CodeInvalidArgs, "unsupported config key: "+key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd, configGetCmd, configSetCmd)
}
