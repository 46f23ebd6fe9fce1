package port

import (
	"context"

	"github.com/subatic/transcode-worker/internal/domain/entity"
)

// StatusNotifier reports the terminal job status upstream. Failures here are
// logged by the caller and never fail the job.
type StatusNotifier interface {
	NotifyStatus(ctx context.Context, videoID string, status entity.ReportedStatus, duration float64) error
}
