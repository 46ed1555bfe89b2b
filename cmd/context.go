package cmd

import (
	"fmt"
	"os"

	"github.com/neoromantic/telegram-sync-cli/internal/store"
	"github.com/neoromantic/telegram-sync-cli/internal/store/accountsdb"
)

// openCacheStore opens cache.db, creating the data directory first if
// it does not exist (spec §6's persisted state layout).
func openCacheStore() (*store.Store, error) {
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return store.Open(cfg.Paths.CacheDBPath())
}

// openAccountsRepo opens accounts.db (spec §6) via GORM.
func openAccountsRepo() (*accountsdb.Repository, error) {
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	db, err := accountsdb.Open(cfg)
	if err != nil {
		return nil, err
	}
	return accountsdb.NewRepository(db), nil
}
