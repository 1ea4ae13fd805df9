package scantree

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAssignsDistinctHandles(t *testing.T) {
	cb1 := newTestCodebase(t, map[string]string{"a.txt": "x"})
	cb2 := newTestCodebase(t, map[string]string{"b.txt": "x"})

	assert.Greater(t, cb1.id, 0)
	assert.Greater(t, cb2.id, 0)
	assert.NotEqual(t, cb1.id, cb2.id)

	// Every resource carries its tree handle and resolves back to its
	// codebase through the registry.
	for res := range cb1.Walk(WalkOptions{}) {
		assert.Equal(t, cb1.id, res.TreeID)
		assert.Same(t, cb1, res.Codebase())
	}
	assert.Same(t, cb2, cb2.Root.Codebase())
}

func TestRegistryIdempotentRegistration(t *testing.T) {
	cb := newTestCodebase(t, map[string]string{"a.txt": "x"})

	id, err := registerCodebase(cb, "", 0)
	require.NoError(t, err)
	assert.Equal(t, cb.id, id)
}

func TestRegistryHandlesNeverReused(t *testing.T) {
	root := buildTree(t, map[string]string{"a.txt": "x"})
	cb1, err := NewCodebase(root, WithConfig(testConfig(t)))
	require.NoError(t, err)
	first := cb1.id
	require.NoError(t, cb1.Close())

	cb2, err := NewCodebase(root, WithConfig(testConfig(t)))
	require.NoError(t, err)
	t.Cleanup(func() { cb2.Close() })

	assert.Greater(t, cb2.id, first)
}

func TestRegistryDeregisterUnknown(t *testing.T) {
	cb, err := deregisterCodebase(1<<30, "", 0)
	require.NoError(t, err)
	assert.Nil(t, cb)
}

func TestRegistryLookupUnknown(t *testing.T) {
	assert.Nil(t, lookupCodebase(-1))
	assert.Nil(t, lookupCodebase(1<<30))
}

func TestAcquireRegistryLockDisabled(t *testing.T) {
	// No lock path means no shared cache dir: the lock is a no-op.
	unlock, err := acquireRegistryLock("", time.Millisecond)
	require.NoError(t, err)
	unlock()
}

func TestAcquireRegistryLockConflict(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "registry.lock")
	holder := flock.New(lockPath)
	locked, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer holder.Unlock()

	_, err = acquireRegistryLock(lockPath, 300*time.Millisecond)
	require.ErrorIs(t, err, ErrLockTimeout)

	// Released by the holder, the lock is acquirable again.
	require.NoError(t, holder.Unlock())
	unlock, err := acquireRegistryLock(lockPath, time.Second)
	require.NoError(t, err)
	unlock()
}

func TestNewCodebaseLockTimeout(t *testing.T) {
	cfg := testConfig(t)
	cfg.LockTimeoutSeconds = 1
	require.NoError(t, os.MkdirAll(cfg.CacheBaseDir, 0o755))

	holder := flock.New(filepath.Join(cfg.CacheBaseDir, "registry.lock"))
	locked, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer holder.Unlock()

	_, err = NewCodebase(buildTree(t, map[string]string{"a.txt": "x"}), WithConfig(cfg))
	require.ErrorIs(t, err, ErrLockTimeout)
}

func TestCloseIdempotent(t *testing.T) {
	root := buildTree(t, map[string]string{"a.txt": "x"})
	cb, err := NewCodebase(root, WithConfig(testConfig(t)))
	require.NoError(t, err)

	cacheDir := cb.cacheDir
	require.DirExists(t, cacheDir)
	require.NoError(t, cb.Close())
	assert.NoDirExists(t, cacheDir)
	require.NoError(t, cb.Close())
}
