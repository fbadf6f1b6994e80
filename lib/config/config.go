// Copyright 2026 The Habitat Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Habitat commands.
//
// Configuration is loaded from a single YAML file specified by:
//   - the --config flag passed to the command, or
//   - the HABITAT_CONFIG environment variable.
//
// There are no fallbacks or automatic discovery. Environment variables
// do not override file values; the file is the single source of truth.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the configuration for Habitat commands.
type Config struct {
	// Relays are the websocket URLs of the relays to connect to.
	// At least one is required.
	Relays []string `yaml:"relays"`

	// KeyFile is the path to a file containing the hex-encoded
	// private key. Optional: without it the client is read-only and
	// every publish fails with a not-authenticated error.
	KeyFile string `yaml:"key_file"`

	// RelayHint is the relay URL embedded in message references so
	// other clients know where to find the room. Defaults to the
	// first relay.
	RelayHint string `yaml:"relay_hint"`

	// LogLevel is one of "debug", "info", "warn", "error".
	// Defaults to "info".
	LogLevel string `yaml:"log_level"`
}

// Load loads configuration from the HABITAT_CONFIG environment
// variable. If HABITAT_CONFIG is not set, this fails; commands that
// take a --config flag should call LoadFile directly.
func Load() (*Config, error) {
	configPath := os.Getenv("HABITAT_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("config: HABITAT_CONFIG environment variable not set; " +
			"set it to the path of your habitat.yaml, or use the --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. Unknown
// fields are an error: a typo in a config key should fail loudly, not
// silently fall back to a default.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	config := &Config{LogLevel: "info"}
	decoder := yaml.NewDecoder(strings.NewReader(string(raw)))
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if config.RelayHint == "" {
		config.RelayHint = config.Relays[0]
	}
	return config, nil
}

func (c *Config) validate() error {
	if len(c.Relays) == 0 {
		return fmt.Errorf("at least one relay URL is required")
	}
	for _, url := range c.Relays {
		if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
			return fmt.Errorf("relay URL %q must start with ws:// or wss://", url)
		}
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel converts the configured log level to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (want debug, info, warn, or error)", c.LogLevel)
	}
}

// PrivateKeyHex reads and trims the key file named by the config.
// Returns "" without error when no key file is configured.
func (c *Config) PrivateKeyHex() (string, error) {
	if c.KeyFile == "" {
		return "", nil
	}
	raw, err := os.ReadFile(c.KeyFile)
	if err != nil {
		return "", fmt.Errorf("config: reading key file %s: %w", c.KeyFile, err)
	}
	key := strings.TrimSpace(string(raw))
	if key == "" {
		return "", fmt.Errorf("config: key file %s is empty", c.KeyFile)
	}
	return key, nil
}
