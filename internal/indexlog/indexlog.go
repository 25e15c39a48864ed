// Package indexlog implements the append-only key-to-location log
// described in spec §4.2: every write to a namespace is mirrored here
// as a self-delimited record, and at startup the whole log family is
// replayed to reconstruct the in-memory index.
package indexlog

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"time"

	"github.com/rkv-project/rkv/internal/logfile"
	"github.com/rkv-project/rkv/internal/rkvindex"
)

func nowUnix() uint32 { return uint32(time.Now().Unix()) }

// fixedRecordSize is the size, in bytes, of everything in a record
// except the variable-length id: idlength(1) + offset(8) + length(8).
const fixedRecordSize = 1 + 8 + 8

// DefaultMaxFiles bounds the index-file sequence a single namespace may
// grow to (spec §4.2 step 5, §9 Open Question: kept at 10000). Load
// accepts its own maxFiles so a store's config.MaxFilesPerNamespace can
// override this default rather than it being baked in as a constant.
const DefaultMaxFiles = 10000

// File is the active (append-mode) index log segment for a namespace.
type File struct {
	dir    string
	fileID uint16
	fd     *os.File
}

// encodeRecord serializes one index entry to its on-disk byte-identical
// form: idlength, id bytes, offset, length (spec §4.2, §6).
func encodeRecord(e *rkvindex.Entry) []byte {
	buf := make([]byte, fixedRecordSize+len(e.ID))
	buf[0] = byte(len(e.ID))
	copy(buf[1:], e.ID)
	binary.BigEndian.PutUint64(buf[1+len(e.ID):], e.Offset)
	binary.BigEndian.PutUint64(buf[1+len(e.ID)+8:], e.Length)
	return buf
}

// Append installs (id, dataid, offset, length) into idx and persists
// the same record to the active log file. The in-memory upsert and the
// on-disk append always describe the identical mutation (spec §4.2).
func (f *File) Append(idx *rkvindex.Index, id []byte, offset, length uint64) (*rkvindex.Entry, error) {
	if len(id) < 1 || len(id) > rkvindex.MaxIDLength {
		return nil, fmt.Errorf("indexlog: idlength %d out of range [1,%d]", len(id), rkvindex.MaxIDLength)
	}

	entry := idx.Upsert(id, f.fileID, offset, length)

	rec := encodeRecord(entry)
	n, err := f.fd.Write(rec)
	if err != nil {
		return nil, fmt.Errorf("indexlog: append: %w", err)
	}
	if n != len(rec) {
		return nil, fmt.Errorf("indexlog: short append write (%d of %d bytes)", n, len(rec))
	}

	return entry, nil
}

// Sync flushes the active segment to stable storage.
func (f *File) Sync() error {
	return f.fd.Sync()
}

// Close closes the active segment's descriptor.
func (f *File) Close() error {
	return f.fd.Close()
}

// FileID reports the active segment's sequence id.
func (f *File) FileID() uint16 { return f.fileID }

// Create opens (creating if missing) the index file for fileid, writes
// a fresh header, and returns it in append mode. Used on rotation (spec
// §4.2 "File rotation"); the very first segment is set up by Load.
func Create(dir string, fileid uint16) (*File, error) {
	path := logfile.Path(dir, "rkv-index", fileid)

	// The header goes through a non-append descriptor: os.File.WriteAt
	// refuses files opened with O_APPEND.
	hfd, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("indexlog: open %s: %w", path, err)
	}
	h := logfile.New(logfile.MagicIndex, fileid)
	werr := logfile.WriteAt0(hfd, h)
	hfd.Close()
	if werr != nil {
		return nil, fmt.Errorf("indexlog: write header %s: %w", path, werr)
	}

	fd, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("indexlog: open %s: %w", path, err)
	}

	return &File{dir: dir, fileID: fileid, fd: fd}, nil
}

// Load replays every index file in dir's sequence into a fresh
// in-memory index and returns the active (append-mode) final segment,
// following the load protocol of spec §4.2 exactly:
//
//  1. Start at fileid 0, try to open/create each candidate in turn.
//  2. An empty, newly created file beyond fileid 0 is discarded and we
//     fall back to the previous file as active.
//  3. A non-empty file with a torn header is fatal.
//  4. Every record is replayed into idx with later occurrences
//     (anywhere in the sequence) overwriting earlier ones.
//
// maxFiles bounds the sequence length (a store's
// config.MaxFilesPerNamespace); pass DefaultMaxFiles when no
// configured override applies.
func Load(dir string, maxFiles int) (idx *rkvindex.Index, active *File, err error) {
	idx = rkvindex.New()

	var fileid uint16
	for fileid = 0; int(fileid) < maxFiles; fileid++ {
		path := logfile.Path(dir, "rkv-index", fileid)

		fd, openErr := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
		if openErr != nil {
			return nil, nil, fmt.Errorf("indexlog: open %s: %w", path, openErr)
		}

		header, n, readErr := logfile.ReadHeader(fd)
		if readErr != nil {
			fd.Close()
			return nil, nil, fmt.Errorf("indexlog: %s: %w", path, readErr)
		}

		if n == 0 {
			// Freshly created, empty file.
			if fileid == 0 {
				h := logfile.New(logfile.MagicIndex, fileid)
				if werr := logfile.WriteAt0(fd, h); werr != nil {
					fd.Close()
					return nil, nil, fmt.Errorf("indexlog: init %s: %w", path, werr)
				}
				fd.Close()
				return idx, mustOpenActive(dir, fileid), nil
			}

			// Not the first file: we created it needlessly, discard it
			// and reopen the previous segment as active.
			fd.Close()
			if rmErr := os.Remove(path); rmErr != nil {
				return nil, nil, fmt.Errorf("indexlog: discard %s: %w", path, rmErr)
			}
			return idx, mustOpenActive(dir, fileid-1), nil
		}

		if n < logfile.Size {
			fd.Close()
			return nil, nil, fmt.Errorf("indexlog: %s: torn header (%d bytes)", path, n)
		}

		if verr := header.Validate(logfile.MagicIndex); verr != nil {
			fd.Close()
			return nil, nil, fmt.Errorf("indexlog: %s: %w", path, verr)
		}

		header.Opened = nowUnix()
		if werr := logfile.WriteAt0(fd, header); werr != nil {
			fd.Close()
			return nil, nil, fmt.Errorf("indexlog: %s: rewrite opened: %w", path, werr)
		}

		if _, serr := fd.Seek(int64(logfile.Size), io.SeekStart); serr != nil {
			fd.Close()
			return nil, nil, fmt.Errorf("indexlog: %s: seek past header: %w", path, serr)
		}

		if rerr := replay(fd, fileid, idx); rerr != nil {
			fd.Close()
			return nil, nil, fmt.Errorf("indexlog: %s: %w", path, rerr)
		}

		fd.Close()
	}

	return nil, nil, fmt.Errorf("indexlog: exceeded max file count %d", maxFiles)
}

// replay reads self-delimited records from fd (positioned right after
// the header) until EOF, upserting each into idx as belonging to
// fileid. A truncated mid-record read is fatal (spec §4.2).
func replay(fd *os.File, fileid uint16, idx *rkvindex.Index) error {
	for {
		var idlenBuf [1]byte
		n, err := io.ReadFull(fd, idlenBuf[:])
		if err == io.EOF && n == 0 {
			return nil
		}
		if err != nil {
			return fmt.Errorf("truncated record (id length): %w", err)
		}

		idlen := int(idlenBuf[0])
		rest := make([]byte, idlen+8+8)
		if _, err := io.ReadFull(fd, rest); err != nil {
			return fmt.Errorf("truncated record (body): %w", err)
		}

		id := rest[:idlen]
		offset := binary.BigEndian.Uint64(rest[idlen : idlen+8])
		length := binary.BigEndian.Uint64(rest[idlen+8 : idlen+16])

		idx.Upsert(id, fileid, offset, length)
	}
}

func mustOpenActive(dir string, fileid uint16) *File {
	path := logfile.Path(dir, "rkv-index", fileid)
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		// Load already proved this path opens cleanly moments ago; a
		// failure here indicates the filesystem changed underneath us,
		// which is the IoFatal class per spec §7.
		panic(fmt.Sprintf("indexlog: reopen active %s: %v", path, err))
	}
	return &File{dir: dir, fileID: fileid, fd: fd}
}
