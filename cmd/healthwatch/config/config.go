// Package config implements the healthwatch service configuration.
//
// Values are resolved in order of precedence: command-line flags, HEALTHWATCH_
// environment variables (including those loaded from .env and .env.local),
// an optional YAML config file, then defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. HEALTHWATCH_LISTEN.
const EnvPrefix = "HEALTHWATCH"

// Storage backends.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config holds all service configuration.
type Config struct {
	Listen     string
	GRPCListen string

	PollInterval time.Duration
	FetchTimeout time.Duration
	GHOURL       string
	Entity       string
	WarmStart    bool

	KeepAlive     time.Duration
	SessionBuffer int

	Storage       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PostgresDSN   string

	NATSURL string

	LogLevel  string
	LogFormat string
}

// BindFlags registers the configuration flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	// Server
	fs.String("listen", ":8080", "HTTP listen address")
	fs.String("grpc-listen", ":50051", "gRPC listen address (empty disables gRPC)")

	// Polling
	fs.Duration("poll-interval", 5*time.Second, "Interval between poll cycles")
	fs.Duration("fetch-timeout", 10*time.Second, "Upstream fetch timeout")
	fs.String("gho-url", "https://ghoapi.azureedge.net/api", "WHO Global Health Observatory API URL (empty uses synthetic data only)")
	fs.String("entity", "", "Poll a single country instead of the whole roster")
	fs.Bool("warm-start", false, "Seed change detection from stored readings on startup")

	// Streaming
	fs.Duration("keepalive", 15*time.Second, "Keep-alive interval for streaming sessions")
	fs.Int("session-buffer", 64, "Per-session event queue size")

	// Storage
	fs.String("storage", StorageMemory, "Storage backend: memory, redis or postgres")
	fs.String("redis-addr", "localhost:6379", "Redis address")
	fs.String("redis-password", "", "Redis password")
	fs.Int("redis-db", 0, "Redis database")
	fs.String("postgres-dsn", "", "Postgres connection string")

	// Messaging
	fs.String("nats-url", "", "NATS server URL for mirroring events (empty disables)")

	// Logging
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.String("log-format", "json", "Log format: json or console")

	fs.String("config", "", "Path to a YAML config file")
}

// Load resolves the configuration for the flags in fs, which must have been
// registered with BindFlags and parsed.
func Load(fs *pflag.FlagSet) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Listen:        v.GetString("listen"),
		GRPCListen:    v.GetString("grpc-listen"),
		PollInterval:  v.GetDuration("poll-interval"),
		FetchTimeout:  v.GetDuration("fetch-timeout"),
		GHOURL:        v.GetString("gho-url"),
		Entity:        v.GetString("entity"),
		WarmStart:     v.GetBool("warm-start"),
		KeepAlive:     v.GetDuration("keepalive"),
		SessionBuffer: v.GetInt("session-buffer"),
		Storage:       strings.ToLower(v.GetString("storage")),
		RedisAddr:     v.GetString("redis-addr"),
		RedisPassword: v.GetString("redis-password"),
		RedisDB:       v.GetInt("redis-db"),
		PostgresDSN:   v.GetString("postgres-dsn"),
		NATSURL:       v.GetString("nats-url"),
		LogLevel:      strings.ToLower(v.GetString("log-level")),
		LogFormat:     strings.ToLower(v.GetString("log-format")),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll-interval must be positive, got %s", c.PollInterval))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch-timeout must be positive, got %s", c.FetchTimeout))
	}
	if c.KeepAlive <= 0 {
		errs = append(errs, fmt.Errorf("keepalive must be positive, got %s", c.KeepAlive))
	}
	if c.SessionBuffer < 1 {
		errs = append(errs, fmt.Errorf("session-buffer must be at least 1, got %d", c.SessionBuffer))
	}
	switch c.Storage {
	case StorageMemory:
	case StorageRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("redis-addr is required for redis storage"))
		}
	case StoragePostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres-dsn is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q", c.Storage))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log-format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// loadEnvFiles loads .env then .env.local. Variables already set in the
// environment are kept.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}
