// Package config assembles the daemon's configuration from environment
// variables, an optional .env file, and the user-facing config.json
// layer (spec §6), the way the teacher's core/config package does for
// its own process.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration in a structured way,
// mirroring the teacher's struct-of-structs layout.
type Config struct {
	App      AppConfig
	Paths    PathsConfig
	Database DatabaseConfig
	Sync     SyncConfig
	Executor ExecutorConfig
	Cache    CacheConfig
}

type AppConfig struct {
	Version     string
	Debug       bool
	Environment string
}

// PathsConfig lays out the persisted state layout under the data dir
// (spec §6): accounts.db, cache.db, session_<accountId>.db, daemon.pid,
// config.json, skill.json.
type PathsConfig struct {
	DataDir string
}

func (p PathsConfig) AccountsDBPath() string { return filepath.Join(p.DataDir, "accounts.db") }
func (p PathsConfig) CacheDBPath() string    { return filepath.Join(p.DataDir, "cache.db") }
func (p PathsConfig) PIDFilePath() string    { return filepath.Join(p.DataDir, "daemon.pid") }
func (p PathsConfig) ConfigJSONPath() string { return filepath.Join(p.DataDir, "config.json") }
func (p PathsConfig) SkillJSONPath() string  { return filepath.Join(p.DataDir, "skill.json") }
func (p PathsConfig) SessionDBPath(accountID string) string {
	return filepath.Join(p.DataDir, "session_"+accountID+".db")
}

type DatabaseConfig struct {
	// Driver selects the accounts.db backend; "sqlite" (default) or
	// "postgres". cache.db is always the embedded SQLite store (spec §2).
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// SyncConfig holds the remote credentials and sync-worker tunables.
type SyncConfig struct {
	APIID        string
	APIHash      string
	BatchSize    int
	APIMethod    string
	Verbose      bool
}

// ExecutorConfig holds the executor's pacing tunables (spec §4.5).
type ExecutorConfig struct {
	InterBatchDelayMs  int64
	InterJobDelayMs    int64
	MaxBatchesPerJob   int
	ShutdownTimeoutMs  int64
	ReconnectInitialMs int64
	ReconnectMaxMs     int64
	ReconnectBackoff   float64
}

// CacheConfig mirrors config.json's cache.* keys (spec §6).
type CacheConfig struct {
	StalenessPeers    string
	StalenessDialogs  string
	StalenessFullInfo string
	BackgroundRefresh bool
	MaxCacheAge       string
}

func (c CacheConfig) StalenessPeersDuration() (time.Duration, error) {
	return parseToDuration(c.StalenessPeers)
}

func (c CacheConfig) StalenessDialogsDuration() (time.Duration, error) {
	return parseToDuration(c.StalenessDialogs)
}

func (c CacheConfig) StalenessFullInfoDuration() (time.Duration, error) {
	return parseToDuration(c.StalenessFullInfo)
}

func (c CacheConfig) MaxCacheAgeDuration() (time.Duration, error) {
	return parseToDuration(c.MaxCacheAge)
}

func parseToDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	ms, err := ParseDuration(s)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Load builds the Config from the environment, honoring
// TELEGRAM_SYNC_CLI_DATA_DIR (spec §6) with a $HOME/.telegram-sync-cli
// default, then overlays config.json if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.BindEnv("api_id", "TELEGRAM_API_ID")
	viper.BindEnv("api_hash", "TELEGRAM_API_HASH")
	viper.BindEnv("data_dir", "TELEGRAM_SYNC_CLI_DATA_DIR")
	viper.BindEnv("verbose", "VERBOSE")

	dataDir := viper.GetString("data_dir")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataDir = filepath.Join(home, ".telegram-sync-cli")
	}

	cfg := &Config{
		App: AppConfig{
			Version:     "v0.1.0",
			Debug:       getEnvBool("APP_DEBUG", false),
			Environment: getEnv("APP_ENV", "production"),
		},
		Paths: PathsConfig{DataDir: dataDir},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "sqlite"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", ""),
		},
		Sync: SyncConfig{
			APIID:     viper.GetString("api_id"),
			APIHash:   viper.GetString("api_hash"),
			BatchSize: getEnvInt("SYNC_BATCH_SIZE", 100),
			APIMethod: getEnv("SYNC_API_METHOD", "messages.getHistory"),
			Verbose:   viper.GetBool("verbose"),
		},
		Executor: ExecutorConfig{
			InterBatchDelayMs:  getEnvInt64("EXECUTOR_INTER_BATCH_DELAY_MS", 250),
			InterJobDelayMs:    getEnvInt64("EXECUTOR_INTER_JOB_DELAY_MS", 1000),
			MaxBatchesPerJob:   getEnvInt("EXECUTOR_MAX_BATCHES_PER_JOB", 0),
			ShutdownTimeoutMs:  getEnvInt64("DAEMON_SHUTDOWN_TIMEOUT_MS", 10000),
			ReconnectInitialMs: getEnvInt64("DAEMON_RECONNECT_INITIAL_MS", 1000),
			ReconnectMaxMs:     getEnvInt64("DAEMON_RECONNECT_MAX_MS", 60000),
			ReconnectBackoff:   2.0,
		},
		Cache: CacheConfig{
			StalenessPeers:    getEnv("CACHE_STALENESS_PEERS", "1h"),
			StalenessDialogs:  getEnv("CACHE_STALENESS_DIALOGS", "30s"),
			StalenessFullInfo: getEnv("CACHE_STALENESS_FULL_INFO", "5m"),
			BackgroundRefresh: getEnvBool("CACHE_BACKGROUND_REFRESH", true),
			MaxCacheAge:       getEnv("CACHE_MAX_CACHE_AGE", "7d"),
		},
	}

	if err := MergeConfigJSON(cfg, cfg.Paths.ConfigJSONPath()); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
