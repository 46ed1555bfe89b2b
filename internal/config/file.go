package config

import (
	"encoding/json"
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// fileConfig is the decode target for config.json (spec §6). Every key
// is a pointer/zero-value so an absent key leaves the env-derived
// default in place.
type fileConfig struct {
	ActiveAccount *int `json:"activeAccount"`
	Cache         *struct {
		Staleness *struct {
			Peers    string `json:"peers"`
			Dialogs  string `json:"dialogs"`
			FullInfo string `json:"fullInfo"`
		} `json:"staleness"`
		BackgroundRefresh *bool  `json:"backgroundRefresh"`
		MaxCacheAge       string `json:"maxCacheAge"`
	} `json:"cache"`
}

// MergeConfigJSON decodes config.json (if present) and overlays its
// values onto cfg. A missing file is not an error.
func MergeConfigJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if fc.ActiveAccount != nil && *fc.ActiveAccount < 1 {
		return fmt.Errorf("invalid configuration: activeAccount: must be a positive integer, got %d", *fc.ActiveAccount)
	}

	if fc.Cache != nil {
		if fc.Cache.Staleness != nil {
			if fc.Cache.Staleness.Peers != "" {
				cfg.Cache.StalenessPeers = fc.Cache.Staleness.Peers
			}
			if fc.Cache.Staleness.Dialogs != "" {
				cfg.Cache.StalenessDialogs = fc.Cache.Staleness.Dialogs
			}
			if fc.Cache.Staleness.FullInfo != "" {
				cfg.Cache.StalenessFullInfo = fc.Cache.Staleness.FullInfo
			}
		}
		if fc.Cache.BackgroundRefresh != nil {
			cfg.Cache.BackgroundRefresh = *fc.Cache.BackgroundRefresh
		}
		if fc.Cache.MaxCacheAge != "" {
			cfg.Cache.MaxCacheAge = fc.Cache.MaxCacheAge
		}
	}

	return nil
}

// durationRule validates a string against the strict duration grammar
// (spec §6), treating an empty string as valid (field not set).
type durationRule struct{}

func (durationRule) Validate(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !IsValidDuration(s) {
		return fmt.Errorf("must match ^[0-9]+[smhdw]$, got %q", s)
	}
	return nil
}

// Validate checks the assembled config for strict-mode violations,
// collecting every offending path rather than failing on the first
// (spec §6: "lists offending paths").
func Validate(cfg *Config) error {
	errs := validation.Errors{
		"cache.staleness.peers":    validation.Validate(cfg.Cache.StalenessPeers, durationRule{}),
		"cache.staleness.dialogs":  validation.Validate(cfg.Cache.StalenessDialogs, durationRule{}),
		"cache.staleness.fullInfo": validation.Validate(cfg.Cache.StalenessFullInfo, durationRule{}),
		"cache.maxCacheAge":        validation.Validate(cfg.Cache.MaxCacheAge, durationRule{}),
		"database.driver":          validation.Validate(cfg.Database.Driver, validation.In("sqlite", "postgres", "")),
	}
	if err := errs.Filter(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
