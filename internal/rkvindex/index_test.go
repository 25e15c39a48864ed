package rkvindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpsertThenGet(t *testing.T) {
	idx := New()

	e := idx.Upsert([]byte("hello"), 0, 10, 5)
	require.Equal(t, []byte("hello"), e.ID)
	require.Equal(t, uint16(0), e.DataID)

	got := idx.Get([]byte("hello"))
	require.NotNil(t, got)
	require.Equal(t, uint64(10), got.Offset)
	require.Equal(t, uint64(5), got.Length)
}

func TestUpsertOverwriteMutatesInPlace(t *testing.T) {
	idx := New()

	first := idx.Upsert([]byte("k"), 0, 0, 3)
	second := idx.Upsert([]byte("k"), 1, 100, 7)

	require.Same(t, first, second, "overwrite should return the same entry pointer")
	require.Equal(t, uint16(1), first.DataID)
	require.Equal(t, uint64(100), first.Offset)
	require.Equal(t, uint64(7), first.Length)
	require.Equal(t, 1, idx.Len())
}

func TestGetMissingReturnsNil(t *testing.T) {
	idx := New()
	require.Nil(t, idx.Get([]byte("nope")))
}

func TestHashUsesFirstThreeBytesOnly(t *testing.T) {
	// Keys sharing a 3-byte prefix collide into the same branch but
	// remain individually addressable via the in-branch linear scan
	// (spec §3, §9: the hash is deliberately weak).
	idx := New()
	idx.Upsert([]byte("abcxxxx"), 0, 1, 1)
	idx.Upsert([]byte("abcyyyy"), 0, 2, 2)

	require.Equal(t, hash([]byte("abcxxxx")), hash([]byte("abcyyyy")))

	e1 := idx.Get([]byte("abcxxxx"))
	e2 := idx.Get([]byte("abcyyyy"))
	require.NotNil(t, e1)
	require.NotNil(t, e2)
	require.NotEqual(t, e1.Offset, e2.Offset)
}

func TestHashShortKeys(t *testing.T) {
	require.NotPanics(t, func() {
		hash([]byte("a"))
		hash([]byte("ab"))
		hash([]byte("abc"))
		hash([]byte("abcd"))
	})
}

func TestIDLengthBoundary(t *testing.T) {
	idx := New()

	shortest := []byte{'x'}
	longest := make([]byte, MaxIDLength)
	for i := range longest {
		longest[i] = byte(i % 256)
	}

	idx.Upsert(shortest, 0, 0, 1)
	idx.Upsert(longest, 0, 1, 1)

	require.NotNil(t, idx.Get(shortest))
	require.NotNil(t, idx.Get(longest))
}

func TestEachVisitsEveryEntry(t *testing.T) {
	idx := New()
	idx.Upsert([]byte("a"), 0, 0, 10)
	idx.Upsert([]byte("b"), 0, 10, 20)
	idx.Upsert([]byte("zzz"), 0, 30, 30)

	var total uint64
	count := 0
	idx.Each(func(e *Entry) {
		total += e.Length
		count++
	})

	require.Equal(t, 3, count)
	require.Equal(t, uint64(60), total)
}
