package conversation

import (
	"fmt"
	"path/filepath"
)

// StoreConfig selects the conversation backend.
type StoreConfig struct {
	// Backend is "file" or "sqlite".
	Backend string `mapstructure:"backend" yaml:"backend" validate:"oneof=file sqlite"`

	// Dir holds one JSON file per conversation for the file backend.
	Dir string `mapstructure:"dir" yaml:"dir" validate:"required_if=Backend file"`

	// Path is the database file for the sqlite backend.
	Path string `mapstructure:"path" yaml:"path" validate:"required_if=Backend sqlite"`
}

// DefaultStoreConfig keeps conversations as JSON files under dataDir.
func DefaultStoreConfig(dataDir string) StoreConfig {
	return StoreConfig{
		Backend: "file",
		Dir:     filepath.Join(dataDir, "conversations"),
		Path:    filepath.Join(dataDir, "conversations.db"),
	}
}

// Open builds the Store for cfg.Backend.
func Open(cfg StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "file", "":
		return NewFileStore(cfg.Dir)
	case "sqlite":
		return OpenSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown conversation backend %q", cfg.Backend)
	}
}
