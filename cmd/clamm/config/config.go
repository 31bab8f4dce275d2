// Package config loads the clamm command configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendSQLite  = "sqlite"
)

type StoreConfig struct {
	// Backend is one of memory, leveldb or sqlite.
	Backend string `yaml:"backend"`
	// Path is the leveldb directory or the sqlite DSN. Unused for memory.
	Path string `yaml:"path"`
}

type Config struct {
	Store    StoreConfig `yaml:"store"`
	LogLevel string      `yaml:"logLevel"`
	// MetricsAddr, when set, serves Prometheus metrics on /metrics.
	MetricsAddr string `yaml:"metricsAddr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Store:    StoreConfig{Backend: BackendMemory},
		LogLevel: "info",
	}
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendLevelDB, BackendSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("config: store.path is required for the %s backend", c.Store.Backend)
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	return validateLogLevel(c.LogLevel)
}

func validateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("config: unknown log level %q", level)
	}
}

// SetLogLevel overrides the configured log level, rejecting unknown levels.
func (c *Config) SetLogLevel(level string) error {
	if err := validateLogLevel(level); err != nil {
		return err
	}
	c.LogLevel = level
	return nil
}

// LoadConfig reads path over the defaults. An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
