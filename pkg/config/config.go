// pkg/config/config.go
// Package config loads the optional rembrandb.yml server configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config names the tables to serve and where their files live. The data
// directory is expected to contain the Tables/ layout.
type Config struct {
	DataDir string   `yaml:"data_dir"`
	Tables  []string `yaml:"tables"`
}

// Default returns the built-in configuration: the demo table, plus the
// benchmark table when present, out of the working directory.
func Default() *Config {
	return &Config{
		DataDir: ".",
		Tables:  []string{"demo", "benchmark"},
	}
}

// Load reads and parses a YAML configuration file. Missing fields keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "."
	}
	if len(cfg.Tables) == 0 {
		cfg.Tables = Default().Tables
	}
	return cfg, nil
}

// LoadIfPresent loads the file when it exists and falls back to the
// defaults when it does not.
func LoadIfPresent(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Default(), nil
	}
	return Load(path)
}
