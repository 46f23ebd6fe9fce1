package entity

import (
	"time"

	"github.com/google/uuid"
)

// JobState is one step of the pipeline state machine. States advance strictly
// in declaration order; StateFailed is reachable from any non-terminal state.
type JobState string

const (
	StateAcquired    JobState = "ACQUIRED"
	StateDownloading JobState = "DOWNLOADING"
	StateValidating  JobState = "VALIDATING"
	StatePlanning    JobState = "PLANNING"
	StateEncoding    JobState = "ENCODING"
	StatePackaging   JobState = "PACKAGING"
	StateUploading   JobState = "UPLOADING"
	StateNotifying   JobState = "NOTIFYING"
	StateCleanup     JobState = "CLEANUP"
	StateDone        JobState = "DONE"
	StateFailed      JobState = "FAILED"
)

// ReportedStatus is the terminal status reported upstream.
type ReportedStatus string

const (
	StatusDone   ReportedStatus = "DONE"
	StatusFailed ReportedStatus = "FAILED"
)

// Job tracks one video through the pipeline. Jobs live only in process
// memory; durability is the work source's concern.
type Job struct {
	VideoID      string
	RunID        uuid.UUID
	State        JobState
	Duration     float64
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewJob(videoID string) *Job {
	now := time.Now().UTC()
	return &Job{
		VideoID:   videoID,
		RunID:     uuid.New(),
		State:     StateAcquired,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition advances the job to the next pipeline state. A failed job stays
// failed.
func (j *Job) Transition(state JobState) {
	if j.State == StateFailed {
		return
	}
	j.State = state
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkFailed(err error) {
	j.State = StateFailed
	if err != nil {
		j.ErrorMessage = err.Error()
	}
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkDone(duration float64) {
	j.State = StateDone
	j.Duration = duration
	j.UpdatedAt = time.Now().UTC()
}

// Status maps the job's terminal state to the upstream status contract.
func (j *Job) Status() ReportedStatus {
	if j.State == StateFailed {
		return StatusFailed
	}
	return StatusDone
}

func (j *Job) Terminal() bool {
	return j.State == StateDone || j.State == StateFailed
}
