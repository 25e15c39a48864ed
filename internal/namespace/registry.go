package namespace

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/zeebo/blake3"
)

// dirFor derives the on-disk directory id for a namespace name by
// truncating its blake3 digest, rather than using the name's raw bytes
// as a path component (spec SPEC_FULL §4.4.1: namespace names are
// arbitrary byte strings, just like keys).
func dirFor(name string) string {
	sum := blake3.Sum256([]byte(name))
	return hex.EncodeToString(sum[:16])
}

func registryPath(root string) string {
	return filepath.Join(root, "names.json")
}

// loadRegistry reads the name -> directory-id map, returning an empty
// map if the registry file doesn't exist yet.
func loadRegistry(root string) (map[string]string, error) {
	raw, err := os.ReadFile(registryPath(root))
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("namespace: read registry: %w", err)
	}

	reg := map[string]string{}
	if err := json.Unmarshal(raw, &reg); err != nil {
		return nil, fmt.Errorf("namespace: parse registry: %w", err)
	}
	return reg, nil
}

// saveRegistry atomically rewrites the name -> directory-id map.
func saveRegistry(root string, reg map[string]string) error {
	raw, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("namespace: marshal registry: %w", err)
	}
	if err := atomic.WriteFile(registryPath(root), bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("namespace: atomic write registry: %w", err)
	}
	return nil
}
