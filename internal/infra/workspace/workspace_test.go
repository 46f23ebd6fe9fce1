package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireCreatesFreshDirectory(t *testing.T) {
	m := NewManager(t.TempDir())

	ws, err := m.Acquire("vid42")
	require.NoError(t, err)

	info, err := os.Stat(ws.OutputDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(ws.Dir(), "input.mp4"), ws.InputPath())
}

func TestAcquireRejectsUnsafeIDs(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "work")
	require.NoError(t, os.MkdirAll(root, 0o755))

	// A sibling of the workspace root that a traversal id would point at.
	victim := filepath.Join(base, "victim", "data")
	require.NoError(t, os.MkdirAll(filepath.Dir(victim), 0o755))
	require.NoError(t, os.WriteFile(victim, []byte("keep"), 0o644))

	m := NewManager(root)
	for _, id := range []string{"", ".", "..", "../victim", "a/b", `a\b`} {
		_, err := m.Acquire(id)
		assert.Error(t, err, "id %q must be rejected", id)
	}

	_, err := os.Stat(victim)
	assert.NoError(t, err, "file outside the root was touched")
}

func TestAcquireResetsStaleState(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root)

	stale := filepath.Join(root, "vid42", "output", "leftover.ts")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("junk"), 0o644))

	_, err := m.Acquire("vid42")
	require.NoError(t, err)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale file survived re-acquisition")
}

func TestReleaseRemovesEverythingAndIsIdempotent(t *testing.T) {
	m := NewManager(t.TempDir())
	ws, err := m.Acquire("vid42")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(ws.InputPath(), []byte("video"), 0o644))

	require.NoError(t, ws.Release())
	_, statErr := os.Stat(ws.Dir())
	assert.True(t, os.IsNotExist(statErr))

	// Second release is a no-op, not an error.
	require.NoError(t, ws.Release())
}

func TestSweepWipesRoot(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root)

	orphan := filepath.Join(root, "crashed-job", "input.mp4")
	require.NoError(t, os.MkdirAll(filepath.Dir(orphan), 0o755))
	require.NoError(t, os.WriteFile(orphan, []byte("junk"), 0o644))

	require.NoError(t, m.Sweep())

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
