// Package config provides configuration management for the hrmcp CLI.
// Precedence (highest to lowest): flags > environment > config file >
// defaults.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Default configuration values.
const (
	DefaultCSVPath = "data/hr_people.csv"
	DefaultOutput  = "table"

	envPrefix = "HRMCP_"
)

// Config holds all CLI configuration options.
type Config struct {
	CSVPath string `koanf:"csv"`
	Output  string `koanf:"output"`
	Verbose bool   `koanf:"verbose"`
}

// findConfigFile returns the config file to use. An explicit path wins;
// otherwise the first of hrmcp.yaml / hrmcp.yml that exists.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"hrmcp.yaml", "hrmcp.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load assembles the configuration from defaults, an optional YAML
// file, HRMCP_* environment variables and the given command-line flags.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"csv":     DefaultCSVPath,
		"output":  DefaultOutput,
		"verbose": false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// --- context plumbing ---

type configKey struct{}
type loggerKey struct{}

// WithConfig stores cfg on the context.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config from the context, or defaults when
// none was stored.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{CSVPath: DefaultCSVPath, Output: DefaultOutput}
}

// WithLogger stores logger on the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the context, or a stderr text
// logger when none was stored.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
