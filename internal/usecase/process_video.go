package usecase

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/subatic/transcode-worker/internal/domain/entity"
	"github.com/subatic/transcode-worker/internal/domain/hls"
	"github.com/subatic/transcode-worker/internal/domain/port"
	"github.com/subatic/transcode-worker/internal/infra/metrics"
)

// ProcessVideoUseCase drives the job state machine: one job fully completes,
// through cleanup, before the next is acquired. All stage failures surface
// here and map to a single FAILED notification plus unconditional workspace
// release.
type ProcessVideoUseCase struct {
	source     port.WorkSource
	workspaces port.Workspaces
	raw        port.RawStore
	prober     port.Prober
	encoder    port.Encoder
	preview    port.PreviewGenerator
	uploader   *Uploader
	notifier   port.StatusNotifier
	logger     *zap.Logger

	pollInterval time.Duration
}

type ProcessVideoConfig struct {
	PollInterval time.Duration
}

func NewProcessVideoUseCase(
	source port.WorkSource,
	workspaces port.Workspaces,
	raw port.RawStore,
	prober port.Prober,
	encoder port.Encoder,
	preview port.PreviewGenerator,
	uploader *Uploader,
	notifier port.StatusNotifier,
	logger *zap.Logger,
	cfg ProcessVideoConfig,
) *ProcessVideoUseCase {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &ProcessVideoUseCase{
		source:       source,
		workspaces:   workspaces,
		raw:          raw,
		prober:       prober,
		encoder:      encoder,
		preview:      preview,
		uploader:     uploader,
		notifier:     notifier,
		logger:       logger,
		pollInterval: cfg.PollInterval,
	}
}

// Run is the worker loop: acquire, process, sleep on empty source, until the
// context is cancelled.
func (uc *ProcessVideoUseCase) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		item, err := uc.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			uc.logger.Warn("work acquisition failed", zap.Error(err))
			uc.sleep(ctx)
			continue
		}
		if item == nil {
			uc.logger.Debug("no pending work")
			uc.sleep(ctx)
			continue
		}

		uc.Execute(ctx, item)
		uc.sleep(ctx)
	}
}

func (uc *ProcessVideoUseCase) sleep(ctx context.Context) {
	select {
	case <-time.After(uc.pollInterval):
	case <-ctx.Done():
	}
}

// Execute runs one job to its terminal state and guarantees workspace
// cleanup on every exit path.
func (uc *ProcessVideoUseCase) Execute(ctx context.Context, item *port.WorkItem) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessVideo")
	defer span.End()

	job := entity.NewJob(item.VideoID)
	span.SetAttributes(
		attribute.String("job.video_id", job.VideoID),
		attribute.String("job.run_id", job.RunID.String()),
	)
	log := uc.logger.With(
		zap.String("video_id", job.VideoID),
		zap.String("run_id", job.RunID.String()),
	)
	log.Info("job acquired")

	metrics.ActiveJobs.Inc()
	defer metrics.ActiveJobs.Dec()

	ws, err := uc.workspaces.Acquire(job.VideoID)
	if err != nil {
		uc.finish(ctx, job, item, nil, 0,
			entity.Fail(entity.FailureSourceUnavailable, entity.StateAcquired, err), log)
		return
	}
	// Backstop against panics; the ordered release happens in finish.
	defer func() {
		if err := ws.Release(); err != nil {
			log.Error("workspace release failed", zap.Error(err))
		}
	}()

	duration, err := uc.runPipeline(ctx, job, ws, log)
	uc.finish(ctx, job, item, ws, duration, err, log)
}

func (uc *ProcessVideoUseCase) runPipeline(ctx context.Context, job *entity.Job, ws port.Workspace, log *zap.Logger) (float64, error) {
	tracer := otel.Tracer("usecase")

	// Download the raw asset.
	job.Transition(entity.StateDownloading)
	start := time.Now()
	dlCtx, dlSpan := tracer.Start(ctx, "download_source")
	err := uc.raw.Download(dlCtx, job.VideoID, ws.InputPath())
	dlSpan.End()
	metrics.StageDuration.WithLabelValues("download").Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, entity.Fail(entity.FailureSourceUnavailable, entity.StateDownloading, err)
	}

	// Validate before any expensive work.
	job.Transition(entity.StateValidating)
	start = time.Now()
	prCtx, prSpan := tracer.Start(ctx, "probe_source")
	probe, err := uc.prober.Probe(prCtx, ws.InputPath())
	prSpan.End()
	metrics.StageDuration.WithLabelValues("validate").Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, entity.Fail(entity.FailureInvalidSource, entity.StateValidating, err)
	}

	// Plan the rendition ladder.
	job.Transition(entity.StatePlanning)
	ladder, err := hls.Plan(probe)
	if err != nil {
		return 0, entity.Fail(entity.FailureInvalidSource, entity.StatePlanning, err)
	}
	log.Info("ladder planned",
		zap.Int("rungs", len(ladder)),
		zap.String("top_rung", ladder[0].Name),
		zap.Float64("duration", probe.Duration),
	)

	// Encode every rung.
	job.Transition(entity.StateEncoding)
	start = time.Now()
	encCtx, encSpan := tracer.Start(ctx, "encode_ladder")
	err = uc.encoder.EncodeLadder(encCtx, ws.InputPath(), ws.OutputDir(), ladder)
	encSpan.End()
	metrics.StageDuration.WithLabelValues("encode").Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, entity.Fail(entity.FailureEncode, entity.StateEncoding, err)
	}
	metrics.RenditionsEncodedTotal.Add(float64(len(ladder)))

	// Package: master manifest and preview assets.
	job.Transition(entity.StatePackaging)
	start = time.Now()
	pkCtx, pkSpan := tracer.Start(ctx, "package_outputs")
	err = uc.packageOutputs(pkCtx, ws, ladder, probe.Duration)
	pkSpan.End()
	metrics.StageDuration.WithLabelValues("package").Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, entity.Fail(entity.FailurePackaging, entity.StatePackaging, err)
	}

	// Publish everything.
	job.Transition(entity.StateUploading)
	start = time.Now()
	upCtx, upSpan := tracer.Start(ctx, "upload_artifacts")
	err = uc.uploader.UploadTree(upCtx, ws.OutputDir(), job.VideoID+"/")
	upSpan.End()
	metrics.StageDuration.WithLabelValues("upload").Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, entity.Fail(entity.FailurePublish, entity.StateUploading, err)
	}

	return probe.Duration, nil
}

func (uc *ProcessVideoUseCase) packageOutputs(ctx context.Context, ws port.Workspace, ladder hls.Ladder, duration float64) error {
	manifestPath := filepath.Join(ws.OutputDir(), "master.m3u8")
	if err := os.WriteFile(manifestPath, hls.RenderMasterPlaylist(ladder), 0o644); err != nil {
		return err
	}

	topPlaylist := filepath.Join(ws.OutputDir(), filepath.FromSlash(ladder[0].PlaylistPath()))
	return uc.preview.Generate(ctx, topPlaylist, ws.OutputDir(), duration)
}

// finish reports the terminal status exactly once, settles the work source,
// and releases the workspace in state order.
func (uc *ProcessVideoUseCase) finish(ctx context.Context, job *entity.Job, item *port.WorkItem, ws port.Workspace, duration float64, pipelineErr error, log *zap.Logger) {
	job.Transition(entity.StateNotifying)

	if pipelineErr != nil {
		job.MarkFailed(pipelineErr)
		log.Error("job failed",
			zap.String("failure_kind", string(entity.KindOf(pipelineErr))),
			zap.Error(pipelineErr),
		)
		if err := uc.notifier.NotifyStatus(ctx, job.VideoID, entity.StatusFailed, 0); err != nil {
			log.Error("status notification failed", zap.Error(err))
		}
		if err := uc.source.Release(ctx, item); err != nil {
			log.Warn("failed to release work item", zap.Error(err))
		}
		metrics.JobsProcessedTotal.WithLabelValues("failed").Inc()
	} else {
		if err := uc.notifier.NotifyStatus(ctx, job.VideoID, entity.StatusDone, duration); err != nil {
			log.Error("status notification failed", zap.Error(err))
		}
		if err := uc.raw.Remove(ctx, job.VideoID); err != nil {
			log.Warn("failed to delete raw asset", zap.Error(err))
		}
		if err := uc.source.Complete(ctx, item); err != nil {
			log.Warn("failed to complete work item", zap.Error(err))
		}
		metrics.JobsProcessedTotal.WithLabelValues("done").Inc()
	}

	job.Transition(entity.StateCleanup)
	if ws != nil {
		if err := ws.Release(); err != nil {
			log.Error("workspace release failed", zap.Error(err))
		}
	}

	if pipelineErr == nil {
		job.MarkDone(duration)
	}
	log.Info("job finished", zap.String("state", string(job.State)))
}
