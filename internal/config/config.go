// Package config loads the command line tool's settings from the
// environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds the settings shared by every snapcdc command. Flags override
// the environment.
type Config struct {
	Driver         string `env:"SNAPCDC_DRIVER"          envDefault:"sqlite"`
	DSN            string `env:"SNAPCDC_DSN"             envDefault:"snapcdc.db"`
	Namespace      string `env:"SNAPCDC_NAMESPACE"`
	SnapshotSuffix string `env:"SNAPCDC_SNAPSHOT_SUFFIX" envDefault:"_snapshots"`
	StrictKeys     bool   `env:"SNAPCDC_STRICT_KEYS"`
	LogLevel       string `env:"SNAPCDC_LOG_LEVEL"       envDefault:"info"`
	LogFormat      string `env:"SNAPCDC_LOG_FORMAT"      envDefault:"text"`
}

// Load parses Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Logger builds a logger writing to w in the configured format and level.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.LogFormat) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: use \"text\" or \"json\"", c.LogFormat)
	}
}
