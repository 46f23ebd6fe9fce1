package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingStore struct {
	mu       sync.Mutex
	attempts []string
	failKeys map[string]bool
}

func (s *countingStore) Upload(_ context.Context, key string, _ string) error {
	s.mu.Lock()
	s.attempts = append(s.attempts, key)
	s.mu.Unlock()
	if s.failKeys[key] {
		return errors.New("connection reset")
	}
	return nil
}

func buildTree(t *testing.T, n int) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "720p"), 0o755))
	for i := 0; i < n; i++ {
		path := filepath.Join(root, "720p", fmt.Sprintf("%03d.ts", i))
		require.NoError(t, os.WriteFile(path, []byte("segment"), 0o644))
	}
	return root
}

func TestUploadTreeSuccess(t *testing.T) {
	store := &countingStore{}
	root := buildTree(t, 10)

	u := NewUploader(store, 3, zap.NewNop())
	require.NoError(t, u.UploadTree(context.Background(), root, "vid42/"))

	assert.Len(t, store.attempts, 10)
	for _, key := range store.attempts {
		assert.Contains(t, key, "vid42/720p/")
	}
}

func TestUploadTreeOneFailureFailsAllButFansOutFully(t *testing.T) {
	store := &countingStore{failKeys: map[string]bool{"vid42/720p/004.ts": true}}
	root := buildTree(t, 10)

	u := NewUploader(store, 3, zap.NewNop())
	err := u.UploadTree(context.Background(), root, "vid42/")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 10 artifact uploads failed")
	// The failure must not short-circuit the remaining scheduled transfers.
	assert.Len(t, store.attempts, 10)
}

func TestUploadTreeMultipleFailuresAggregated(t *testing.T) {
	store := &countingStore{failKeys: map[string]bool{
		"vid42/720p/001.ts": true,
		"vid42/720p/007.ts": true,
		"vid42/720p/009.ts": true,
	}}
	root := buildTree(t, 10)

	u := NewUploader(store, 10, zap.NewNop())
	err := u.UploadTree(context.Background(), root, "vid42/")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 of 10 artifact uploads failed")
	assert.Len(t, store.attempts, 10)
}

func TestUploadTreeEmptyDir(t *testing.T) {
	store := &countingStore{}
	u := NewUploader(store, 3, zap.NewNop())

	require.NoError(t, u.UploadTree(context.Background(), t.TempDir(), "vid42/"))
	assert.Empty(t, store.attempts)
}
