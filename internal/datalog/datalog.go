// Package datalog implements the append-only value store described in
// spec §4.1: a sequence of rkv-data-%04d files holding raw value bytes,
// addressed solely by (fileid, offset, length) triples the index log
// hands back — the data log itself never frames or wraps its payloads.
package datalog

import (
	"fmt"
	"io"
	"os"

	"github.com/rkv-project/rkv/internal/logfile"
)

// File is one open data log segment. The core opens exactly one data
// file per namespace at a time in append mode; older segments are
// opened separately for reads that target them.
type File struct {
	dir    string
	fileID uint16
	fd     *os.File
}

// Create opens (creating if missing) the data file for fileid, writes a
// fresh header, and returns it in append mode. Used on rotation (spec
// §4.1 "Rotation"); a namespace's first segment is opened with Open,
// which writes no header.
func Create(dir string, fileid uint16) (*File, error) {
	path := logfile.Path(dir, "rkv-data", fileid)

	// The header goes through a non-append descriptor: os.File.WriteAt
	// refuses files opened with O_APPEND.
	hfd, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("datalog: open %s: %w", path, err)
	}
	h := logfile.New(logfile.MagicData, fileid)
	werr := logfile.WriteAt0(hfd, h)
	hfd.Close()
	if werr != nil {
		return nil, fmt.Errorf("datalog: write header %s: %w", path, werr)
	}

	fd, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("datalog: open %s: %w", path, err)
	}

	return &File{dir: dir, fileID: fileid, fd: fd}, nil
}

// Open opens (creating if missing) the data file for fileid in append
// mode. It neither writes, rewrites nor validates a header — the Opened
// timestamp is refreshed only in index files, by the paired index log load,
// which is the component that actually decides file existence during
// the load loop.
func Open(dir string, fileid uint16) (*File, error) {
	path := logfile.Path(dir, "rkv-data", fileid)

	fd, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("datalog: open %s: %w", path, err)
	}

	return &File{dir: dir, fileID: fileid, fd: fd}, nil
}

// FileID reports the sequence id of this segment.
func (f *File) FileID() uint16 { return f.fileID }

// Append writes value to the end of the active segment and returns the
// pre-write offset and the number of bytes written. The data log does
// not frame the payload; the index is the sole record of (offset,
// length) for this write (spec §4.1).
func (f *File) Append(value []byte) (offset uint64, length uint64, err error) {
	off, err := f.fd.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, 0, fmt.Errorf("datalog: seek end: %w", err)
	}

	n, err := f.fd.Write(value)
	if err != nil {
		return 0, 0, fmt.Errorf("datalog: write: %w", err)
	}
	if n != len(value) {
		return 0, 0, fmt.Errorf("datalog: short write (%d of %d bytes)", n, len(value))
	}

	return uint64(off), uint64(n), nil
}

// ReadAt positions at offset and returns exactly length bytes. A short
// read is treated as fatal corruption/truncation per spec §4.1.
func (f *File) ReadAt(offset, length uint64) ([]byte, error) {
	buf := make([]byte, length)
	n, err := f.fd.ReadAt(buf, int64(offset))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("datalog: read at %d: %w", offset, err)
	}
	if uint64(n) != length {
		return nil, fmt.Errorf("datalog: short read at %d (%d of %d bytes): corrupt or truncated", offset, n, length)
	}
	return buf, nil
}

// Sync flushes the segment to stable storage. Used by the strict sync
// mode and by the emergency-sync hook.
func (f *File) Sync() error {
	return f.fd.Sync()
}

// Close closes the underlying file descriptor.
func (f *File) Close() error {
	return f.fd.Close()
}
