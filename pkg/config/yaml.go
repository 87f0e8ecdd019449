package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	rdterrors "github.com/sdejongh/rdt/pkg/errors"
)

// LoadFromFile loads configuration from a YAML file. Missing keys keep
// their default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, rdterrors.Wrap(err, rdterrors.CodeInvalidConfig, path, "failed to parse config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, rdterrors.Wrap(err, rdterrors.CodeInvalidConfig, path, "invalid configuration")
	}

	return cfg, nil
}

// SaveToFile saves configuration to a YAML file
func SaveToFile(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return rdterrors.Wrap(err, rdterrors.CodeInvalidConfig, path, "invalid configuration")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default configuration file path,
// $XDG_CONFIG_HOME/rdt/config.yaml
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "rdt", "config.yaml")
}

// LoadDefault attempts to load configuration from the default location.
// If the file doesn't exist, returns the default configuration.
func LoadDefault() (*Config, error) {
	return LoadOptional(DefaultConfigPath())
}

// LoadOptional loads path, falling back to the defaults when it does not
// exist
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return LoadFromFile(path)
}
