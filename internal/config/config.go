// Package config provides configuration management for sessiondeck.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full sessiondeck configuration.
type Config struct {
	Library LibraryConfig `yaml:"library"`
	Log     LogConfig     `yaml:"log"`
	UI      UIConfig      `yaml:"ui"`
}

// LibraryConfig configures the session library.
type LibraryConfig struct {
	Path string `yaml:"path"` // database path (empty = default)
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // log file path (empty = stderr)
}

// UIConfig configures the browse view.
type UIConfig struct {
	// RevealCommand is a shell-style template run by the reveal
	// action; "{id}" and "{title}" are substituted.
	RevealCommand string `yaml:"reveal_command"`

	// Animated enables animated row updates.
	Animated bool `yaml:"animated"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		UI:  UIConfig{Animated: true},
	}
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv applies environment variable overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("SESSIONDECK_LIBRARY"); v != "" {
		c.Library.Path = v
	}
	if v := os.Getenv("SESSIONDECK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}
