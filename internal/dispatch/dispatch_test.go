package dispatch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rkv-project/rkv/internal/config"
	"github.com/rkv-project/rkv/internal/store"
)

func newExecutor(t *testing.T) *Executor {
	t.Helper()
	cfg := config.Default()
	cfg.RootPath = filepath.Join(t.TempDir(), "data")

	st, err := store.Init(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { st.Destroy() })

	ex, err := New(st)
	require.NoError(t, err)
	return ex
}

func TestDoSetAndGet(t *testing.T) {
	ex := newExecutor(t)

	_, err := ex.Do(Set{Key: []byte("k"), Value: []byte("v")})
	require.NoError(t, err)

	val, err := ex.Do(Get{Key: []byte("k")})
	require.NoError(t, err)
	require.Equal(t, "v", string(val))
}

func TestDoNSNewThenSelect(t *testing.T) {
	ex := newExecutor(t)

	_, err := ex.Do(NSNew{Name: "alt"})
	require.NoError(t, err)

	_, err = ex.Do(Select{Name: "alt"})
	require.NoError(t, err)
	require.Equal(t, "alt", ex.Session.Namespace().Name())
}

func TestDoNSSet(t *testing.T) {
	ex := newExecutor(t)

	_, err := ex.Do(NSNew{Name: "alt"})
	require.NoError(t, err)

	_, err = ex.Do(NSSet{Name: "alt", Field: "maxsize", Value: "10"})
	require.NoError(t, err)

	_, err = ex.Do(Select{Name: "alt"})
	require.NoError(t, err)

	_, err = ex.Do(Set{Key: []byte("k"), Value: []byte("01234567890")}) // 11 bytes, over quota
	require.Error(t, err)
}

func TestDoUnknownCommandPanics(t *testing.T) {
	ex := newExecutor(t)
	require.Panics(t, func() {
		ex.Do("not a command")
	})
}

func TestDoGetMissingKey(t *testing.T) {
	ex := newExecutor(t)
	_, err := ex.Do(Get{Key: []byte("missing")})
	require.Error(t, err)
}

func TestDoRotate(t *testing.T) {
	ex := newExecutor(t)

	_, err := ex.Do(Set{Key: []byte("before"), Value: []byte("v1")})
	require.NoError(t, err)

	_, err = ex.Do(Rotate{})
	require.NoError(t, err)

	_, err = ex.Do(Set{Key: []byte("after"), Value: []byte("v2")})
	require.NoError(t, err)

	val, err := ex.Do(Get{Key: []byte("before")})
	require.NoError(t, err)
	require.Equal(t, "v1", string(val))

	val, err = ex.Do(Get{Key: []byte("after")})
	require.NoError(t, err)
	require.Equal(t, "v2", string(val))
}
