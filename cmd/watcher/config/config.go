// Package config provides configuration parsing for the watcher.
//
// Supported configuration sources (in order of precedence):
//  1. Command-line flags
//  2. WATCHER_ environment variables
//  3. Default values
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. WATCHER_SERVER_URL.
const EnvPrefix = "WATCHER"

// Config holds the watcher configuration.
type Config struct {
	Listen string
	// ServerURL is the healthwatch HTTP address, used for event streams.
	ServerURL string
	// GRPCAddr switches the watcher to the gRPC Watch stream when set.
	GRPCAddr string
	Topics   []string

	MaxRetryInterval time.Duration

	LogFormat string
	LogLevel  string
}

// BindFlags registers the watcher flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("listen", ":8082", "HTTP listen address for health and metrics")
	fs.String("server-url", "http://localhost:8080", "healthwatch HTTP endpoint")
	fs.String("grpc-addr", "", "healthwatch gRPC endpoint (empty follows the HTTP event streams)")
	fs.StringSlice("topics", []string{"health-update", "stock-update"}, "Topics to follow")
	fs.Duration("max-retry-interval", 30*time.Second, "Upper bound of the reconnect delay")
	fs.String("log-format", "json", "Log format (json|console)")
	fs.String("log-level", "info", "Log level (debug|info|warn|error)")
}

// Load resolves the configuration for the parsed flags in fs.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	cfg := &Config{
		Listen:           v.GetString("listen"),
		ServerURL:        strings.TrimRight(v.GetString("server-url"), "/"),
		GRPCAddr:         v.GetString("grpc-addr"),
		Topics:           v.GetStringSlice("topics"),
		MaxRetryInterval: v.GetDuration("max-retry-interval"),
		LogFormat:        strings.ToLower(v.GetString("log-format")),
		LogLevel:         strings.ToLower(v.GetString("log-level")),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.ServerURL == "" && c.GRPCAddr == "" {
		errs = append(errs, errors.New("server-url or grpc-addr is required"))
	}
	if len(c.Topics) == 0 {
		errs = append(errs, errors.New("at least one topic is required"))
	}
	for _, t := range c.Topics {
		if t != "health-update" && t != "stock-update" {
			errs = append(errs, fmt.Errorf("unknown topic %q", t))
		}
	}
	if c.MaxRetryInterval <= 0 {
		errs = append(errs, fmt.Errorf("max-retry-interval must be positive, got %s", c.MaxRetryInterval))
	}
	return errors.Join(errs...)
}
