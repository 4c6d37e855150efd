package config

import (
	"os"
	"path/filepath"
)

// DefaultHomeDir returns ~/.cortex, or a directory under the temp dir when
// the user home cannot be determined.
func DefaultHomeDir() string {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".cortex")
	}
	return filepath.Join(userHome, ".cortex")
}

// DefaultDataDir is where conversations are kept by default.
func DefaultDataDir() string {
	return filepath.Join(DefaultHomeDir(), "data")
}

// DefaultConfigPath returns the config file path for a given home directory.
func DefaultConfigPath(homeDir string) string {
	return filepath.Join(homeDir, "config.yaml")
}
