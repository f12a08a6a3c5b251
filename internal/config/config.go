package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	Environment    string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelName   string        `env:"LOG_LEVEL" envDefault:"info"`
	StorageBackend string        `env:"STORAGE_BACKEND" envDefault:"memory"`
	RedisURL       string        `env:"REDIS_URL" envDefault:"localhost:6379"`
	SQLitePath     string        `env:"SQLITE_PATH" envDefault:"druid.db"`
	DataDir        string        `env:"DATA_DIR"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	EventsEnabled  bool          `env:"EVENTS_ENABLED" envDefault:"true"`

	// Archive pipeline: the API queues jobs and cmd/worker copies games
	// from Redis into the SQLite file at SQLitePath.
	ArchiveEnabled bool   `env:"ARCHIVE_ENABLED" envDefault:"false"`
	WorkerCount    int    `env:"WORKER_COUNT" envDefault:"1"`
	WorkerID       string `env:"WORKER_ID"`

	LogLevel slog.Level `env:"-"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelName)
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	switch cfg.StorageBackend {
	case BackendMemory, BackendRedis, BackendSQLite:
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
	if cfg.SessionTTL < 0 {
		return nil, fmt.Errorf("SESSION_TTL must not be negative")
	}
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("WORKER_COUNT must be at least 1")
	}
	return &cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
