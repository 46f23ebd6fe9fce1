package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcode_jobs_processed_total",
		Help: "Total number of jobs processed, by terminal status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transcode_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	}, []string{"stage"})

	RenditionsEncodedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcode_renditions_encoded_total",
		Help: "Total number of renditions encoded across all jobs",
	})

	ArtifactsUploadedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcode_artifacts_uploaded_total",
		Help: "Total number of artifact uploads, by result",
	}, []string{"result"})

	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transcode_active_jobs",
		Help: "Number of jobs currently in flight (0 or 1 per worker)",
	})
)
