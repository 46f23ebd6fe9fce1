// Package workspace owns the per-job scratch directories. Every job gets an
// exclusive directory keyed by its video id; Release removes it recursively
// and is safe to call more than once.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/subatic/transcode-worker/internal/domain/port"
)

type Manager struct {
	root string
}

func NewManager(root string) *Manager {
	return &Manager{root: root}
}

// Sweep wipes the whole workspace root. Run once at process start so
// leftovers from a crashed run cannot corrupt a new job's output tree.
func (m *Manager) Sweep() error {
	if err := os.RemoveAll(m.root); err != nil {
		return fmt.Errorf("sweep workspace root: %w", err)
	}
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return fmt.Errorf("recreate workspace root: %w", err)
	}
	return nil
}

// Acquire resets and creates the directory for the given video id. Ids come
// from external sources, so anything that could name a path outside the root
// is rejected before the reset touches the filesystem.
func (m *Manager) Acquire(videoID string) (port.Workspace, error) {
	if !validID(videoID) {
		return nil, fmt.Errorf("unsafe video id %q", videoID)
	}
	dir := filepath.Join(m.root, videoID)
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("reset workspace %s: %w", dir, err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "output"), 0o755); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", dir, err)
	}
	return &Workspace{dir: dir}, nil
}

func validID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}

type Workspace struct {
	dir  string
	once sync.Once
}

func (w *Workspace) Dir() string { return w.dir }

// InputPath is where the raw asset is downloaded to, outside the output tree
// so it is never published.
func (w *Workspace) InputPath() string { return filepath.Join(w.dir, "input.mp4") }

// OutputDir holds every artifact the job publishes.
func (w *Workspace) OutputDir() string { return filepath.Join(w.dir, "output") }

// Release removes the workspace recursively, exactly once.
func (w *Workspace) Release() error {
	var err error
	w.once.Do(func() {
		err = os.RemoveAll(w.dir)
	})
	return err
}
