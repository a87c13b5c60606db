package config

import (
	"os"
	"path/filepath"
)

// DefaultPath returns the default config file path
// (~/.sessiondeck/config.yaml).
func DefaultPath() string {
	return filepath.Join(homeDir(), ".sessiondeck", "config.yaml")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Degrade to the working directory rather than failing config
		// resolution outright.
		return "."
	}
	return home
}
