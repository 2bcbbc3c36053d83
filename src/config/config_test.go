package config

import (
	"errors"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PAGELENS_PROVIDER", "PAGELENS_MODEL", "PAGELENS_PROMPT_PREFIX",
		"PAGELENS_AGENT_BASE_URL", "PAGELENS_AGENT_ID",
		"PAGELENS_HISTORY_BACKEND", "PAGELENS_POSTGRES_DSN", "PAGELENS_MONGO_URI",
		"PAGELENS_REDIS_ADDR", "PAGELENS_REDIS_PASSWORD", "PAGELENS_SQLITE_PATH",
		"PAGELENS_HOST", "PAGELENS_PORT",
		"PAGELENS_CACHE_SIZE", "PAGELENS_CACHE_TTL", "PAGELENS_CACHE_FILE",
		"PAGELENS_REQUEST_TIMEOUT",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "agent" {
		t.Errorf("Provider = %q", cfg.Provider)
	}
	if cfg.HistoryBackend != "memory" {
		t.Errorf("HistoryBackend = %q", cfg.HistoryBackend)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.CacheTTL != 15*time.Minute {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAGELENS_PROVIDER", "ollama")
	t.Setenv("PAGELENS_PORT", "9090")
	t.Setenv("PAGELENS_CACHE_TTL", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "ollama" || cfg.Port != 9090 || cfg.CacheTTL != time.Hour {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAGELENS_PORT", "not-a-port")
	_, err := Load()
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want *ConfigError", err)
	}
	if cerr.Key != "PAGELENS_PORT" {
		t.Errorf("Key = %q", cerr.Key)
	}
}

func TestLoadRequiresBackendDSN(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAGELENS_HISTORY_BACKEND", "postgres")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for postgres backend without DSN")
	}

	t.Setenv("PAGELENS_POSTGRES_DSN", "postgres://localhost/pagelens")
	if _, err := Load(); err != nil {
		t.Fatalf("Load with DSN: %v", err)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAGELENS_HISTORY_BACKEND", "cassandra")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown history backend")
	}
}
