// Package config loads the gbin command's configuration.
//
// Configuration comes from a single YAML file named by the --config flag or
// the GBIN_CONFIG environment variable. Without either, Default is used.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "GBIN_CONFIG"

// Config is the gbin command configuration.
type Config struct {
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// Backend selects the mapping backend: "os" or "heap". Empty means the
	// platform default.
	Backend string `yaml:"backend"`

	Dump DumpConfig `yaml:"dump"`
}

// DumpConfig sets the default range of the dump command.
type DumpConfig struct {
	Start uint64 `yaml:"start"`

	// Length is the number of bytes to dump. Zero dumps to the end of the file.
	Length uint64 `yaml:"length"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "warn",
		Dump:     DumpConfig{Length: 256},
	}
}

// Load loads configuration from path, or from GBIN_CONFIG when path is
// empty. With neither set it returns Default.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file. Fields missing from the
// file keep their default values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if _, err := cfg.Level(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	switch cfg.Backend {
	case "", "os", "heap":
	default:
		return nil, fmt.Errorf("config: %s: unknown backend %q", path, cfg.Backend)
	}
	return cfg, nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelWarn, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
