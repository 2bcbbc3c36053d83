// Package config loads runtime configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ConfigError reports an invalid or missing configuration value.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

// Config holds everything the server and CLI need to run.
type Config struct {
	// Model provider selection.
	Provider     string
	Model        string
	PromptPrefix string

	// Agent HTTP backend (provider "agent").
	AgentBaseURL string
	AgentID      string

	// History persistence.
	HistoryBackend string // memory, redis, postgres, mongo, sqlite
	PostgresDSN    string
	MongoURI       string
	RedisAddr      string
	RedisPassword  string
	SQLitePath     string

	// HTTP server.
	Host string
	Port int

	// Caching and timeouts.
	CacheSize      int
	CacheTTL       time.Duration
	CacheFile      string
	RequestTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present.
func Load() (*Config, error) {
	// Missing .env is fine, real environments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		Provider:       envOr("PAGELENS_PROVIDER", "agent"),
		Model:          os.Getenv("PAGELENS_MODEL"),
		PromptPrefix:   os.Getenv("PAGELENS_PROMPT_PREFIX"),
		AgentBaseURL:   envOr("PAGELENS_AGENT_BASE_URL", "http://localhost:3030"),
		AgentID:        envOr("PAGELENS_AGENT_ID", "summarizer"),
		HistoryBackend: envOr("PAGELENS_HISTORY_BACKEND", "memory"),
		PostgresDSN:    os.Getenv("PAGELENS_POSTGRES_DSN"),
		MongoURI:       os.Getenv("PAGELENS_MONGO_URI"),
		RedisAddr:      os.Getenv("PAGELENS_REDIS_ADDR"),
		RedisPassword:  os.Getenv("PAGELENS_REDIS_PASSWORD"),
		SQLitePath:     os.Getenv("PAGELENS_SQLITE_PATH"),
		Host:           envOr("PAGELENS_HOST", "0.0.0.0"),
		CacheFile:      os.Getenv("PAGELENS_CACHE_FILE"),
	}

	var err error
	if cfg.Port, err = envInt("PAGELENS_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.CacheSize, err = envInt("PAGELENS_CACHE_SIZE", 64); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = envDuration("PAGELENS_CACHE_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = envDuration("PAGELENS_REQUEST_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.HistoryBackend {
	case "memory":
	case "postgres":
		if c.PostgresDSN == "" {
			return &ConfigError{Key: "PAGELENS_POSTGRES_DSN", Reason: "required for postgres history backend"}
		}
	case "mongo":
		if c.MongoURI == "" {
			return &ConfigError{Key: "PAGELENS_MONGO_URI", Reason: "required for mongo history backend"}
		}
	case "redis":
		if c.RedisAddr == "" {
			return &ConfigError{Key: "PAGELENS_REDIS_ADDR", Reason: "required for redis history backend"}
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return &ConfigError{Key: "PAGELENS_SQLITE_PATH", Reason: "required for sqlite history backend"}
		}
	default:
		return &ConfigError{Key: "PAGELENS_HISTORY_BACKEND", Reason: fmt.Sprintf("unknown backend %q", c.HistoryBackend)}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &ConfigError{Key: "PAGELENS_PORT", Reason: fmt.Sprintf("port %d out of range", c.Port)}
	}
	return nil
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("not an integer: %q", v)}
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, &ConfigError{Key: key, Reason: fmt.Sprintf("not a duration: %q", v)}
	}
	return d, nil
}
