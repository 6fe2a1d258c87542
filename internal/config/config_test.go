package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.CacheMaxSize != 256 {
		t.Errorf("CacheMaxSize = %d, want 256", cfg.CacheMaxSize)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.CacheTTL)
	}
	if cfg.CacheSweepInterval != time.Minute {
		t.Errorf("CacheSweepInterval = %v, want 1m", cfg.CacheSweepInterval)
	}
	if !cfg.CacheRefreshOnAccess {
		t.Error("CacheRefreshOnAccess should default to true")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
	if !filepath.IsAbs(cfg.Root) {
		t.Errorf("Root = %s, want absolute", cfg.Root)
	}
	if filepath.Base(cfg.HistoryPath) != "history.db" {
		t.Errorf("HistoryPath = %s, want a history.db", cfg.HistoryPath)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	root := t.TempDir()
	t.Setenv("FSCMD_ROOT", root)
	t.Setenv("FSCMD_CACHE_MAX_SIZE", "32")
	t.Setenv("FSCMD_CACHE_TTL", "30s")
	t.Setenv("FSCMD_CACHE_REFRESH_ON_ACCESS", "false")
	t.Setenv("FSCMD_HISTORY_PATH", filepath.Join(root, "audit.db"))
	t.Setenv("FSCMD_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Root != root {
		t.Errorf("Root = %s, want %s", cfg.Root, root)
	}
	if cfg.CacheMaxSize != 32 {
		t.Errorf("CacheMaxSize = %d, want 32", cfg.CacheMaxSize)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("CacheTTL = %v, want 30s", cfg.CacheTTL)
	}
	if cfg.CacheRefreshOnAccess {
		t.Error("CacheRefreshOnAccess should be false")
	}
	if cfg.HistoryPath != filepath.Join(root, "audit.db") {
		t.Errorf("HistoryPath = %s", cfg.HistoryPath)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
}

func TestLoad_RejectsNonPositiveCacheSize(t *testing.T) {
	t.Setenv("FSCMD_CACHE_MAX_SIZE", "0")

	if _, err := Load(); err == nil {
		t.Error("Load should reject a zero cache size")
	}
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	t.Setenv("FSCMD_CACHE_TTL", "soon")

	if _, err := Load(); err == nil {
		t.Error("Load should reject an unparseable duration")
	}
}
