// Package config loads the store's top-level configuration from a HuJSON
// document (JSON-with-comments), mirroring the commented-config style
// calvinalkan-agent-task uses tailscale/hujson for.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"
)

// SyncMode selects the data-log/index-log durability posture. The core
// never guarantees an fsync on every write (spec §1 Non-goals); "strict"
// simply syncs after every append, "async" relies on the emergency-sync
// hook and process-exit flushing.
type SyncMode string

const (
	SyncStrict SyncMode = "strict"
	SyncAsync  SyncMode = "async"
)

// Config holds the root-level settings a store is constructed from.
type Config struct {
	// RootPath is the directory under which every namespace gets its own
	// subdirectory.
	RootPath string `json:"root_path"`

	// SyncMode is the durability posture described above.
	SyncMode SyncMode `json:"sync_mode"`

	// MaxFilesPerNamespace caps the data/index file sequence length a
	// namespace may grow to (spec §9 Open Question: kept at 10000,
	// documented rather than silently raised).
	MaxFilesPerNamespace int `json:"max_files_per_namespace"`
}

// Default returns the configuration the reference binaries fall back to
// when no config file is supplied.
func Default() Config {
	return Config{
		RootPath:             "./rkv-data",
		SyncMode:             SyncAsync,
		MaxFilesPerNamespace: 10000,
	}
}

// Load reads and standardizes a HuJSON config file, filling in any field
// left zero-valued with the Default().
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	std, err := hujson.Standardize(raw)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(std, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}

	if cfg.RootPath == "" {
		cfg.RootPath = Default().RootPath
	}
	if cfg.SyncMode == "" {
		cfg.SyncMode = Default().SyncMode
	}
	if cfg.MaxFilesPerNamespace <= 0 {
		cfg.MaxFilesPerNamespace = Default().MaxFilesPerNamespace
	}

	return cfg, nil
}
