package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, "./rkv-data", cfg.RootPath)
	require.Equal(t, SyncAsync, cfg.SyncMode)
	require.Equal(t, 10000, cfg.MaxFilesPerNamespace)
}

func TestLoadWithComments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rkv.hujson")

	doc := `{
  // root_path is where every namespace lives on disk
  "root_path": "/var/lib/rkv",
  "sync_mode": "strict",
}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/rkv", cfg.RootPath)
	require.Equal(t, SyncStrict, cfg.SyncMode)
	require.Equal(t, 10000, cfg.MaxFilesPerNamespace) // left at default
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/rkv.hujson")
	require.Error(t, err)
}
