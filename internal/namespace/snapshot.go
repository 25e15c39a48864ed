package namespace

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Snapshot streams a tar+zstd archive of the namespace's data/index
// files and policy record to w (spec SPEC_FULL §4.4.2). The core is
// single-threaded per request (spec §5), so this is a documented
// blocking window for the namespace, not a new concurrency primitive —
// callers must not issue Set/Get concurrently with Snapshot.
func (ns *Namespace) Snapshot(w io.Writer) error {
	if err := ns.activeIdx.Sync(); err != nil {
		return err
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("namespace: snapshot: new zstd writer: %w", err)
	}
	defer zw.Close()

	tw := tar.NewWriter(zw)
	defer tw.Close()

	entries, err := os.ReadDir(ns.dir)
	if err != nil {
		return fmt.Errorf("namespace: snapshot: read dir %s: %w", ns.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := addSnapshotFile(tw, ns.dir, entry.Name()); err != nil {
			return err
		}
	}

	return nil
}

func addSnapshotFile(tw *tar.Writer, dir, name string) error {
	path := filepath.Join(dir, name)

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("namespace: snapshot: stat %s: %w", path, err)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("namespace: snapshot: header %s: %w", path, err)
	}
	hdr.Name = name

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("namespace: snapshot: write header %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("namespace: snapshot: open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("namespace: snapshot: copy %s: %w", path, err)
	}
	return nil
}
