/*
config.go - Server configuration

PURPOSE:
  All runtime configuration comes from the environment, prefixed PLANS_.
  Flags in cmd/server override individual values for local development.

VARIABLES:
  PLANS_ADDR       Listen address        (default :8080)
  PLANS_DB_PATH    SQLite database path  (default ./data/plans.db)
  PLANS_LOG_LEVEL  debug|info|warn|error (default info)
  PLANS_LOG_JSON   Structured JSON logs  (default false)
*/
package api

import (
	"log/slog"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the server's runtime configuration.
type Config struct {
	Addr     string `envconfig:"ADDR" default:":8080"`
	DBPath   string `envconfig:"DB_PATH" default:"./data/plans.db"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON  bool   `envconfig:"LOG_JSON" default:"false"`
}

// LoadConfig reads configuration from PLANS_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("PLANS", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewLogger builds a slog.Logger per the configured level and format.
func (c Config) NewLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
