package usecase

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/subatic/transcode-worker/internal/domain/port"
	"github.com/subatic/transcode-worker/internal/infra/metrics"
)

// Uploader fans the job's output tree out to the distribution store with a
// bounded worker pool. Publication is all-or-nothing: a manifest referencing
// missing segments is unplayable, so any failed transfer fails the job.
type Uploader struct {
	store  port.DistStore
	limit  int
	logger *zap.Logger
}

func NewUploader(store port.DistStore, limit int, logger *zap.Logger) *Uploader {
	if limit < 1 {
		limit = 1
	}
	return &Uploader{store: store, limit: limit, logger: logger}
}

// UploadTree enumerates the complete file set under rootDir before
// submitting anything, then submits every file and waits for every result.
// There is no shared cancellation between transfers: a failure never stops
// the remaining scheduled uploads, it only fails the aggregate.
func (u *Uploader) UploadTree(ctx context.Context, rootDir string, keyPrefix string) error {
	var files []string
	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("enumerate artifacts: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(u.limit)

	var failed atomic.Int64
	for _, path := range files {
		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		key := keyPrefix + filepath.ToSlash(rel)
		localPath := path

		g.Go(func() error {
			if err := u.store.Upload(ctx, key, localPath); err != nil {
				failed.Add(1)
				metrics.ArtifactsUploadedTotal.WithLabelValues("error").Inc()
				u.logger.Error("artifact upload failed", zap.String("key", key), zap.Error(err))
				return err
			}
			metrics.ArtifactsUploadedTotal.WithLabelValues("ok").Inc()
			return nil
		})
	}

	firstErr := g.Wait()
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d artifact uploads failed: %w", n, len(files), firstErr)
	}

	u.logger.Info("artifacts published", zap.Int("count", len(files)))
	return nil
}
