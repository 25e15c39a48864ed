package namespace

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rkv-project/rkv/internal/config"
	"github.com/rkv-project/rkv/internal/rkverrors"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cfg := config.Default()
	cfg.RootPath = t.TempDir()
	m, err := NewManager(cfg)
	require.NoError(t, err)
	return m
}

func newTestManagerWithConfig(t *testing.T, cfg config.Config) *Manager {
	t.Helper()
	cfg.RootPath = t.TempDir()
	m, err := NewManager(cfg)
	require.NoError(t, err)
	return m
}

func strp(s string) *string { return &s }

// S1 — namespace isolation.
func TestNamespaceIsolation(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Create("test_ns_create")
	require.NoError(t, err)

	sess, err := m.NewSession()
	require.NoError(t, err)

	require.NoError(t, sess.Select("test_ns_create", nil))
	require.NoError(t, sess.Set([]byte("hello"), []byte("world")))
	require.NoError(t, sess.Set([]byte("special-key"), []byte("hello")))

	require.NoError(t, sess.Select(DefaultName, nil))
	_, err = sess.Get([]byte("special-key"))
	require.ErrorIs(t, err, rkverrors.ErrKeyNotFound)
}

// S2 — password strictness, including prefix rejection.
func TestPasswordStrictness(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Create("test_ns_protected")
	require.NoError(t, err)
	require.NoError(t, m.NSSet("test_ns_protected", "password", "helloworld"))
	require.NoError(t, m.NSSet("test_ns_protected", "public", "0"))

	sess, err := m.NewSession()
	require.NoError(t, err)

	for _, bad := range []*string{strp("blabla"), strp("hellowo"), strp("helloworldhello"), nil} {
		err := sess.Select("test_ns_protected", bad)
		require.Error(t, err)
	}

	require.NoError(t, sess.Select("test_ns_protected", strp("helloworld")))
	require.True(t, sess.Authenticated())
}

// S3 — read-only public view of a password-protected namespace.
func TestReadOnlyPublicView(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Create("test_ns_protected")
	require.NoError(t, err)
	require.NoError(t, m.NSSet("test_ns_protected", "password", "helloworld"))
	require.NoError(t, m.NSSet("test_ns_protected", "public", "1"))

	sess, err := m.NewSession()
	require.NoError(t, err)

	require.NoError(t, sess.Select("test_ns_protected", nil))
	require.False(t, sess.Authenticated())

	err = sess.Set([]byte("should"), []byte("fail"))
	require.Error(t, err)
}

// S4 — the default namespace is immutable.
func TestDefaultNamespaceProtected(t *testing.T) {
	m := newTestManager(t)

	require.Error(t, m.NSSet(DefaultName, "public", "0"))
	require.Error(t, m.NSSet(DefaultName, "maxsize", "42"))
	require.Error(t, m.NSSet(DefaultName, "password", "hello"))
}

// S5 — quota enforcement, including shrink-then-grow.
func TestQuotaEnforcement(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Create("test_ns_maxsize")
	require.NoError(t, err)
	require.NoError(t, m.NSSet("test_ns_maxsize", "maxsize", "16"))

	sess, err := m.NewSession()
	require.NoError(t, err)
	require.NoError(t, sess.Select("test_ns_maxsize", nil))

	require.NoError(t, sess.Set([]byte("key1"), []byte("0123456789"))) // 10B
	require.NoError(t, sess.Set([]byte("key2"), []byte("abcde")))      // 5B, total 15
	require.NoError(t, sess.Set([]byte("key3"), []byte("+")))          // 1B, total 16 exact

	require.Error(t, sess.Set([]byte("key4"), []byte("X"))) // over by 1

	require.NoError(t, sess.Set([]byte("key3"), []byte("-"))) // same length, delta 0
	require.NoError(t, sess.Set([]byte("key1"), []byte("12345"))) // shrink by 5, total 11

	require.Error(t, sess.Set([]byte("key5"), []byte("67890X"))) // 6B, would be 17

	require.NoError(t, sess.Set([]byte("key5"), []byte("67890"))) // 5B, total 16
}

// S6 — crash recovery: reopening a manager replays every committed write.
func TestCrashRecovery(t *testing.T) {
	cfg := config.Default()
	cfg.RootPath = t.TempDir()

	m, err := NewManager(cfg)
	require.NoError(t, err)

	sess, err := m.NewSession()
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		key := []byte{byte(i), byte(i >> 8), 'k'}
		require.NoError(t, sess.Set(key, []byte("value-of-a-key")))
	}
	require.NoError(t, m.Close())

	m2, err := NewManager(cfg)
	require.NoError(t, err)
	sess2, err := m2.NewSession()
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		key := []byte{byte(i), byte(i >> 8), 'k'}
		val, err := sess2.Get(key)
		require.NoError(t, err)
		require.Equal(t, "value-of-a-key", string(val))
	}
}

func TestSelectNotExisting(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.NewSession()
	require.NoError(t, err)

	err = sess.Select("notfound", nil)
	require.Error(t, err)
}

func TestSelectFailureLeavesPriorSelectionIntact(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.NewSession()
	require.NoError(t, err)

	require.NoError(t, sess.Set([]byte("a"), []byte("1")))

	err = sess.Select("notfound", nil)
	require.Error(t, err)

	// Still selected on default, still able to read what was written.
	val, err := sess.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, "1", string(val))
}

func TestReplaceWithEqualLengthAlwaysPermitted(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Create("eq")
	require.NoError(t, err)
	require.NoError(t, m.NSSet("eq", "maxsize", "5"))

	sess, err := m.NewSession()
	require.NoError(t, err)
	require.NoError(t, sess.Select("eq", nil))

	require.NoError(t, sess.Set([]byte("k"), []byte("abcde")))
	require.NoError(t, sess.Set([]byte("k"), []byte("fghij")))
}
