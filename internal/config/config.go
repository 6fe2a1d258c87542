// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the composition root needs to wire the
// server. All knobs come from FSCMD_* environment variables with
// working defaults, so a bare `fscmd serve` just runs.
type Config struct {
	// Root is the directory all file commands operate under. Paths
	// escaping it are rejected.
	Root string `env:"FSCMD_ROOT"`

	CacheMaxSize         int           `env:"FSCMD_CACHE_MAX_SIZE" envDefault:"256"`
	CacheTTL             time.Duration `env:"FSCMD_CACHE_TTL" envDefault:"5m"`
	CacheSweepInterval   time.Duration `env:"FSCMD_CACHE_SWEEP" envDefault:"1m"`
	CacheRefreshOnAccess bool          `env:"FSCMD_CACHE_REFRESH_ON_ACCESS" envDefault:"true"`

	// HistoryPath is the SQLite audit log location. Empty selects
	// ~/.fscmd/history.db.
	HistoryPath string `env:"FSCMD_HISTORY_PATH"`

	LogLevel string `env:"FSCMD_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment and fills in the path defaults that
// depend on the running process (cwd, home).
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}

	if cfg.Root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("getting working directory: %w", err)
		}
		cfg.Root = cwd
	}
	abs, err := filepath.Abs(cfg.Root)
	if err != nil {
		return Config{}, fmt.Errorf("resolving root %q: %w", cfg.Root, err)
	}
	cfg.Root = abs

	if cfg.HistoryPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("getting home directory: %w", err)
		}
		cfg.HistoryPath = filepath.Join(home, ".fscmd", "history.db")
	}

	if cfg.CacheMaxSize <= 0 {
		return Config{}, fmt.Errorf("FSCMD_CACHE_MAX_SIZE must be positive, got %d", cfg.CacheMaxSize)
	}
	return cfg, nil
}
