// Package namespace implements the namespace manager of spec §4.4: an
// isolated (data-log, index-log, in-memory-index) triple per namespace,
// governed by a policy record (public/password/maxsize/used_bytes).
package namespace

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/rkv-project/rkv/internal/config"
	"github.com/rkv-project/rkv/internal/datalog"
	"github.com/rkv-project/rkv/internal/indexlog"
	"github.com/rkv-project/rkv/internal/rkverrors"
	"github.com/rkv-project/rkv/internal/rkvindex"
	"github.com/rkv-project/rkv/internal/rkvlog"
)

// DefaultName is the immutable namespace every store starts with (spec
// §3: "The namespace named 'default' is immutable with respect to its
// policy fields").
const DefaultName = "default"

// Namespace owns one isolated key space: its own data log, index log,
// in-memory index, and policy.
type Namespace struct {
	name     string
	dir      string
	policy   Policy
	syncMode config.SyncMode
	maxFiles int

	idx       *rkvindex.Index
	activeIdx *indexlog.File
	activeDat *datalog.File

	// readDat caches data-log segments opened for reads against a
	// dataid other than the active one (spec §4.1: data log files are
	// addressed individually by fileid).
	readDat map[uint16]*datalog.File

	mu sync.Mutex // guards readDat only; the core itself stays single-threaded per request (spec §5)
}

// Name returns the namespace's logical name.
func (ns *Namespace) Name() string { return ns.name }

// IsDefault reports whether this is the protected "default" namespace.
func (ns *Namespace) IsDefault() bool { return ns.name == DefaultName }

// Policy returns a copy of the namespace's current policy snapshot.
func (ns *Namespace) Policy() Policy { return ns.policy }

// open loads or creates the namespace directory named dirID under
// root, replays its index log, recomputes used_bytes from the replayed
// index (spec §9 Open Question resolution), and opens the active
// segment pair in append mode. cfg supplies the durability posture
// (sync after every Set, or not) and the index-file sequence bound.
func open(root, name, dirID string, policy Policy, cfg config.Config) (*Namespace, error) {
	dir := filepath.Join(root, dirID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("namespace: mkdir %s: %w", dir, err)
	}

	maxFiles := cfg.MaxFilesPerNamespace
	if maxFiles <= 0 {
		maxFiles = indexlog.DefaultMaxFiles
	}

	idx, activeIdx, err := indexlog.Load(dir, maxFiles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rkverrors.ErrIoFatal, err)
	}

	activeDat, err := datalog.Open(dir, activeIdx.FileID())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rkverrors.ErrIoFatal, err)
	}

	var used uint64
	idx.Each(func(e *rkvindex.Entry) { used += e.Length })
	if used != policy.UsedBytes {
		rkvlog.Info("namespace used_bytes mismatch, recomputed from index",
			"namespace", name, "persisted", policy.UsedBytes, "recomputed", used)
	}
	policy.UsedBytes = used

	return &Namespace{
		name:      name,
		dir:       dir,
		policy:    policy,
		syncMode:  cfg.SyncMode,
		maxFiles:  maxFiles,
		idx:       idx,
		activeIdx: activeIdx,
		activeDat: activeDat,
		readDat:   make(map[uint16]*datalog.File),
	}, nil
}

// Get looks up key and returns its current value (spec §4.3 + §4.1).
func (ns *Namespace) Get(key []byte) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	e := ns.idx.Get(key)
	if e == nil {
		return nil, rkverrors.ErrKeyNotFound
	}

	dat, err := ns.dataFileFor(e.DataID)
	if err != nil {
		return nil, err
	}

	val, err := dat.ReadAt(e.Offset, e.Length)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rkverrors.ErrIoFatal, err)
	}
	return val, nil
}

// Set enforces quota (spec §4.4) and, if accepted, appends to the data
// log, upserts the in-memory index, and mirrors the mutation to the
// index log. No partial writes are committed: the policy's used_bytes
// is only updated after both log appends succeed (spec §7).
func (ns *Namespace) Set(key, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if uint64(len(value)) > math.MaxUint32 {
		return fmt.Errorf("%w: value exceeds %d bytes", rkverrors.ErrInvalidArgument, uint32(math.MaxUint32))
	}

	old := ns.idx.Get(key)
	var oldLen int64
	if old != nil {
		oldLen = int64(old.Length)
	}
	delta := int64(len(value)) - oldLen

	if ns.policy.MaxSize > 0 {
		if int64(ns.policy.UsedBytes)+delta > int64(ns.policy.MaxSize) {
			return rkverrors.ErrQuotaExceeded
		}
	}

	offset, length, err := ns.activeDat.Append(value)
	if err != nil {
		return fmt.Errorf("%w: %v", rkverrors.ErrIoFatal, err)
	}

	if _, err := ns.activeIdx.Append(ns.idx, key, offset, length); err != nil {
		return fmt.Errorf("%w: %v", rkverrors.ErrIoFatal, err)
	}

	if ns.syncMode == config.SyncStrict {
		if err := ns.activeDat.Sync(); err != nil {
			return fmt.Errorf("%w: %v", rkverrors.ErrIoFatal, err)
		}
		if err := ns.activeIdx.Sync(); err != nil {
			return fmt.Errorf("%w: %v", rkverrors.ErrIoFatal, err)
		}
	}

	ns.policy.UsedBytes = uint64(int64(ns.policy.UsedBytes) + delta)
	return nil
}

func validateKey(key []byte) error {
	if len(key) < 1 || len(key) > rkvindex.MaxIDLength {
		return fmt.Errorf("%w: key length %d out of range [1,%d]", rkverrors.ErrInvalidArgument, len(key), rkvindex.MaxIDLength)
	}
	return nil
}

// dataFileFor returns the data-log segment for fileid, opening and
// caching it if it isn't the active segment.
func (ns *Namespace) dataFileFor(fileid uint16) (*datalog.File, error) {
	if fileid == ns.activeDat.FileID() {
		return ns.activeDat, nil
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()

	if f, ok := ns.readDat[fileid]; ok {
		return f, nil
	}

	f, err := datalog.Open(ns.dir, fileid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rkverrors.ErrIoFatal, err)
	}
	ns.readDat[fileid] = f
	return f, nil
}

// Rotate closes the current (data, index) file pair and opens the next
// one in sequence, keeping indexid == dataid at all times (spec §4.2
// "jump_next").
func (ns *Namespace) Rotate() error {
	if err := ns.activeIdx.Sync(); err != nil {
		return fmt.Errorf("%w: %v", rkverrors.ErrIoFatal, err)
	}
	if err := ns.activeIdx.Close(); err != nil {
		return fmt.Errorf("%w: %v", rkverrors.ErrIoFatal, err)
	}
	if err := ns.activeDat.Close(); err != nil {
		return fmt.Errorf("%w: %v", rkverrors.ErrIoFatal, err)
	}

	next := ns.activeIdx.FileID() + 1

	newIdx, err := indexlog.Create(ns.dir, next)
	if err != nil {
		return fmt.Errorf("%w: %v", rkverrors.ErrIoFatal, err)
	}
	newDat, err := datalog.Create(ns.dir, next)
	if err != nil {
		return fmt.Errorf("%w: %v", rkverrors.ErrIoFatal, err)
	}

	ns.activeIdx = newIdx
	ns.activeDat = newDat
	return nil
}

// Emergency fsyncs the active index segment (spec §4.5 "emergency").
func (ns *Namespace) Emergency() error {
	return ns.activeIdx.Sync()
}

// Close flushes the policy record and closes every open file
// descriptor this namespace owns.
func (ns *Namespace) Close() error {
	if err := savePolicy(ns.dir, ns.policy); err != nil {
		rkvlog.Error("failed to persist namespace policy", "namespace", ns.name, "err", err)
	}

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(ns.activeIdx.Close())
	record(ns.activeDat.Close())

	ns.mu.Lock()
	for _, f := range ns.readDat {
		record(f.Close())
	}
	ns.mu.Unlock()

	return firstErr
}
