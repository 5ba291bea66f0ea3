// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Env is the environment configuration. CLI flags take their defaults from
// it.
type Env struct {
	// RefreshToken gates /refresh when set.
	RefreshToken string `env:"SAP_REFRESH_TOKEN"`

	// RegistryFile overrides the endpoint registry location.
	RegistryFile string `env:"SAP_REGISTRY_FILE"`

	LogLevel     string        `env:"SAP_LOG_LEVEL" envDefault:"info"`
	Host         string        `env:"SAP_HOST" envDefault:"0.0.0.0"`
	Port         int           `env:"SAP_PORT" envDefault:"8080"`
	RegistryPort int           `env:"SAP_REGISTRY_PORT" envDefault:"8081"`
	Interval     time.Duration `env:"SAP_INTERVAL" envDefault:"60s"`

	// Journal is the SQLite journal path; empty disables journaling.
	Journal string `env:"SAP_JOURNAL"`

	// OTelEndpoint enables OTLP/HTTP trace export when set.
	OTelEndpoint string `env:"SAP_OTEL_ENDPOINT"`
}

// Load parses Env from the process environment.
func Load() (Env, error) {
	var cfg Env
	if err := ParseEnv(&cfg); err != nil {
		return Env{}, err
	}
	if cfg.Interval <= 0 {
		return Env{}, fmt.Errorf("parse env: SAP_INTERVAL must be positive, got %s", cfg.Interval)
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Level maps LogLevel to a slog level.
func (e Env) Level() (slog.Level, error) {
	return ParseLevel(e.LogLevel)
}

// ParseLevel accepts debug, info, warn/warning and error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// RegistryPath returns RegistryFile, or ~/.sa/saps.txt when unset.
func (e Env) RegistryPath() (string, error) {
	if e.RegistryFile != "" {
		return e.RegistryFile, nil
	}
	return DefaultRegistryFile()
}

// DefaultRegistryFile returns ~/.sa/saps.txt.
func DefaultRegistryFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("registry file: %w", err)
	}
	return filepath.Join(home, ".sa", "saps.txt"), nil
}
