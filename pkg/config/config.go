// Package config provides configuration file parsing for the saltpack
// CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration file.
type Config struct {
	Keys    KeysConfig    `yaml:"keys"`
	Armor   *bool         `yaml:"armor"`
	Keyring KeyringConfig `yaml:"keyring"`
	Logging LoggingConfig `yaml:"logging"`
}

// KeysConfig supplies default key material, hex-encoded. Flags and
// environment variables take precedence over these.
type KeysConfig struct {
	EncryptPK string `yaml:"encrypt_pk"`
	DecryptSK string `yaml:"decrypt_sk"`
	VerifyPK  string `yaml:"verify_pk"`
	SignSK    string `yaml:"sign_sk"`
}

// KeyringConfig points at the local key database.
type KeyringConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls CLI diagnostics.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns the conventional config file location, or an
// empty string when the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".saltpack", "config.yaml")
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path if it exists, and falls back to defaults
// when it does not.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks field values that have a fixed vocabulary.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid logging format %q", c.Logging.Format)
	}

	return nil
}
