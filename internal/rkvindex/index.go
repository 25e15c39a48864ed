// Package rkvindex is the in-memory hash index described in spec §4.3:
// a branch-fanned-out table mapping keys to their latest
// (dataid, offset, length), reconstructed by replaying the index log.
//
// The reference implementation fans out over a dense 2^24-slot pointer
// array. That costs ~128MiB of address space per namespace even when
// almost every branch is empty. Since the spec's own design notes
// (§9) explicitly permit swapping the dense array for any structure
// that keeps the same contract (O(1) expected probe, stable entry
// addresses, identical deterministic hash), this implementation uses a
// sparse map keyed by the same 24-bit branch id instead — branches are
// still lazily materialized and still scanned linearly within
// themselves, so behavior (including the intentional hash weakness
// called out in §9) is unchanged.
package rkvindex

// BranchCount is the size of the 24-bit hash space branches are drawn
// from (spec §3: "a fixed array of 2^24 branch slots").
const BranchCount = 1 << 24

// MaxIDLength is the maximum key length in bytes (spec §3: idlength
// fits one octet and must be in [1,255]).
const MaxIDLength = 255

// initialBranchCapacity and branchGrowth mirror the reference's +64
// growth policy for each branch's entry vector (spec §4.3).
const (
	initialBranchCapacity = 64
	branchGrowth          = 64
)

// Entry is one key-to-location binding. Branches store pointers to
// Entry so that an address handed back by Upsert/Get stays valid
// across later insertions into the same or other branches (spec §5
// "Memory discipline").
type Entry struct {
	ID     []byte
	DataID uint16
	Offset uint64
	Length uint64
}

type branch struct {
	entries []*Entry
}

// Index is one namespace's in-memory hash index.
type Index struct {
	branches  map[uint32]*branch
	nextEntry uint64
}

// New returns an empty index.
func New() *Index {
	return &Index{branches: make(map[uint32]*branch)}
}

// hash implements the spec's deliberately weak, deliberately
// deterministic branch selection: the first up to three key bytes
// packed into 24 bits (spec §3, §9).
func hash(id []byte) uint32 {
	var key uint32
	key = uint32(id[0]) << 16
	if len(id) > 1 {
		key |= uint32(id[1]) << 8
	}
	if len(id) > 2 {
		key |= uint32(id[2])
	}
	return key
}

// Get returns the entry for id, or nil if id has never been written.
func (idx *Index) Get(id []byte) *Entry {
	b := idx.branches[hash(id)]
	if b == nil {
		return nil
	}
	return find(b, id)
}

func find(b *branch, id []byte) *Entry {
	for _, e := range b.entries {
		if len(e.ID) == len(id) && string(e.ID) == string(id) {
			return e
		}
	}
	return nil
}

// Upsert installs or updates the location of id. If an entry already
// exists, its Offset/Length/DataID are replaced in place and the same
// pointer is returned so the caller can compute the quota delta
// between new and old length before overwriting it. Otherwise a new
// entry is allocated and appended to its branch.
func (idx *Index) Upsert(id []byte, dataid uint16, offset, length uint64) *Entry {
	key := hash(id)
	b := idx.branches[key]
	if b == nil {
		b = &branch{entries: make([]*Entry, 0, initialBranchCapacity)}
		idx.branches[key] = b
	}

	if e := find(b, id); e != nil {
		e.DataID = dataid
		e.Offset = offset
		e.Length = length
		return e
	}

	idCopy := make([]byte, len(id))
	copy(idCopy, id)

	if len(b.entries) == cap(b.entries) {
		grown := make([]*Entry, len(b.entries), cap(b.entries)+branchGrowth)
		copy(grown, b.entries)
		b.entries = grown
	}

	e := &Entry{ID: idCopy, DataID: dataid, Offset: offset, Length: length}
	b.entries = append(b.entries, e)
	idx.nextEntry++
	return e
}

// NextID returns the next value of the monotonic insertion counter
// (spec §4.3's next_entry) without consuming it.
func (idx *Index) NextID() uint64 {
	return idx.nextEntry
}

// Len reports the total number of live entries across every branch.
func (idx *Index) Len() int {
	n := 0
	for _, b := range idx.branches {
		n += len(b.entries)
	}
	return n
}

// Each iterates every live entry, in no particular order. Used for
// recomputing used_bytes and for snapshot/export.
func (idx *Index) Each(fn func(*Entry)) {
	for _, b := range idx.branches {
		for _, e := range b.entries {
			fn(e)
		}
	}
}
