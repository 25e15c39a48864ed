package store

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const lockFileName = ".rkv.lock"

// Lock takes an advisory, non-blocking flock(2) on the store's root
// directory, giving the single-writer assumption of spec §5 a real
// OS-enforced guard rail for the reference binaries (library callers
// embedding the core directly are free to never call this). Returns an
// error if another process already holds the lock.
func (s *Store) Lock() error {
	path := filepath.Join(s.Config.RootPath, lockFileName)

	fd, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("store: open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(fd.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		fd.Close()
		return fmt.Errorf("store: another process holds %s: %w", path, err)
	}

	s.lockFD = fd
	s.locked = true
	s.lockDir = s.Config.RootPath
	return nil
}

func (s *Store) unlock() error {
	if s.lockFD == nil {
		return nil
	}
	err := unix.Flock(int(s.lockFD.Fd()), unix.LOCK_UN)
	closeErr := s.lockFD.Close()
	s.lockFD = nil
	s.locked = false
	if err != nil {
		return fmt.Errorf("store: unlock %s: %w", s.lockDir, err)
	}
	return closeErr
}
