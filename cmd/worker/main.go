package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/subatic/transcode-worker/internal/domain/port"
	"github.com/subatic/transcode-worker/internal/infra/config"
	"github.com/subatic/transcode-worker/internal/infra/ffmpeg"
	"github.com/subatic/transcode-worker/internal/infra/metrics"
	miniostorage "github.com/subatic/transcode-worker/internal/infra/minio"
	"github.com/subatic/transcode-worker/internal/infra/rabbitmq"
	"github.com/subatic/transcode-worker/internal/infra/sqs"
	"github.com/subatic/transcode-worker/internal/infra/tracing"
	"github.com/subatic/transcode-worker/internal/infra/webhook"
	"github.com/subatic/transcode-worker/internal/infra/workspace"
	"github.com/subatic/transcode-worker/internal/usecase"
	"github.com/subatic/transcode-worker/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting transcode-worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint)
		if err != nil {
			log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			defer tp.Shutdown(ctx)
		}
	}

	// Stores
	raw, err := miniostorage.NewRawStore(miniostorage.StoreConfig{
		Endpoint:  cfg.DownloadS3Endpoint,
		AccessKey: cfg.DownloadS3AccessKey,
		SecretKey: cfg.DownloadS3SecretKey,
		Region:    cfg.DownloadS3Region,
		UseSSL:    cfg.DownloadS3UseSSL,
		Bucket:    cfg.DownloadS3Bucket,
		Prefix:    cfg.DownloadS3Prefix,
	})
	fatalOnErr(err, "create raw store")

	dist, err := miniostorage.NewDistStore(miniostorage.StoreConfig{
		Endpoint:  cfg.UploadS3Endpoint,
		AccessKey: cfg.UploadS3AccessKey,
		SecretKey: cfg.UploadS3SecretKey,
		Region:    cfg.UploadS3Region,
		UseSSL:    cfg.UploadS3UseSSL,
		Bucket:    cfg.UploadS3Bucket,
	})
	fatalOnErr(err, "create distribution store")

	// Workspaces
	workspaces := workspace.NewManager(cfg.WorkRoot)
	fatalOnErr(workspaces.Sweep(), "sweep workspace root")

	// Upstream API client (always the status notifier, optionally the source)
	hook := webhook.NewClient(cfg.WebhookURL, cfg.WebhookToken, log)

	// Work source
	var source port.WorkSource
	switch cfg.WorkSource {
	case "sqs":
		source, err = sqs.NewSource(ctx, sqs.SourceConfig{
			QueueURL:  cfg.SQSQueueURL,
			Region:    cfg.SQSRegion,
			AccessKey: cfg.SQSAccessKey,
			SecretKey: cfg.SQSSecretKey,
			KeyPrefix: cfg.DownloadS3Prefix,
		}, log)
		fatalOnErr(err, "create sqs work source")
	case "amqp":
		amqpSource, err := rabbitmq.NewSource(cfg.AMQPURL, cfg.AMQPQueue, log)
		fatalOnErr(err, "create amqp work source")
		defer amqpSource.Close()
		source = amqpSource
	default:
		source = hook
	}

	// Media drivers
	prober := ffmpeg.NewProber(cfg.FFprobeBinary, log)
	encoder := ffmpeg.NewEncoder(cfg.FFmpegBinary, cfg.SegmentSeconds, log)
	preview := ffmpeg.NewPreviewGenerator(cfg.FFmpegBinary, log)

	uploader := usecase.NewUploader(dist, cfg.UploadConcurrency, log)

	uc := usecase.NewProcessVideoUseCase(
		source, workspaces, raw,
		prober, encoder, preview,
		uploader, hook,
		log,
		usecase.ProcessVideoConfig{
			PollInterval: time.Duration(cfg.PollIntervalSecs) * time.Second,
		},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("transcode-worker started", zap.String("work_source", cfg.WorkSource))

	if err := uc.Run(ctx); err != nil && err != context.Canceled {
		log.Error("worker loop error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	log.Info("transcode-worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
