// Package store provides the lifecycle glue of spec §4.5: init,
// emergency-sync, and destroy orchestration atop the namespace manager.
// Rotation is per namespace (namespace.Namespace.Rotate), not here.
// Unlike the reference implementation's single process-wide root
// pointer, every caller holds an explicit *Store value (spec §9
// "Global root object").
package store

import (
	"fmt"
	"os"

	"github.com/rkv-project/rkv/internal/config"
	"github.com/rkv-project/rkv/internal/namespace"
	"github.com/rkv-project/rkv/internal/rkvlog"
)

// Store is the root handle a dispatcher holds: the namespace registry
// plus whatever process-level guard rails (e.g. the directory flock)
// the reference binaries layer on top.
type Store struct {
	Config  config.Config
	Mgr     *namespace.Manager
	locked  bool
	lockDir string
	lockFD  *os.File
}

// Init allocates the root directory, loads the namespace registry and
// the "default" namespace from disk, and returns a ready Store (spec
// §4.5 "init"). Other registered namespaces are loaded on first use.
func Init(cfg config.Config) (*Store, error) {
	if err := os.MkdirAll(cfg.RootPath, 0o755); err != nil {
		return nil, fmt.Errorf("store: mkdir root %s: %w", cfg.RootPath, err)
	}

	mgr, err := namespace.NewManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("store: init namespace manager: %w", err)
	}

	rkvlog.Info("store initialized", "root", cfg.RootPath, "sync_mode", cfg.SyncMode)

	return &Store{Config: cfg, Mgr: mgr}, nil
}

// NewSession opens a fresh dispatcher-facing session initialized to
// {"default", true} (spec §4.4).
func (s *Store) NewSession() (*namespace.Session, error) {
	return s.Mgr.NewSession()
}

// Emergency fsyncs every namespace's active index segment. Invoked on
// signals or an explicit admin command (spec §4.5).
func (s *Store) Emergency() error {
	rkvlog.Info("emergency sync requested")
	return s.Mgr.Emergency()
}

// Destroy releases every namespace's resources (and the directory
// lock, if held). Once Destroy returns, the Store must not be used
// again (spec §4.5 "destroy").
func (s *Store) Destroy() error {
	var lockErr error
	if s.locked {
		lockErr = s.unlock()
	}

	closeErr := s.Mgr.Close()
	if closeErr != nil {
		return closeErr
	}
	return lockErr
}
