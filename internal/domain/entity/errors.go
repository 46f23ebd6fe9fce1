package entity

import (
	"errors"
	"fmt"
)

// FailureKind classifies terminal pipeline failures. All kinds except
// FailureNotify fail the job; FailureNotify is logged and never escalated.
type FailureKind string

const (
	FailureSourceUnavailable FailureKind = "SOURCE_UNAVAILABLE"
	FailureInvalidSource     FailureKind = "INVALID_SOURCE"
	FailureEncode            FailureKind = "ENCODE_FAILURE"
	FailurePackaging         FailureKind = "PACKAGING_FAILURE"
	FailurePublish           FailureKind = "PUBLISH_FAILURE"
	FailureNotify            FailureKind = "NOTIFY_FAILURE"
)

// PipelineError carries the failure classification up to the orchestrator,
// the single aggregation point for stage failures.
type PipelineError struct {
	Kind  FailureKind
	Stage JobState
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s at %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Fail wraps err with a failure kind and the stage it surfaced in. An error
// that is already a PipelineError keeps its original classification.
func Fail(kind FailureKind, stage JobState, err error) error {
	if err == nil {
		return nil
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return err
	}
	return &PipelineError{Kind: kind, Stage: stage, Err: err}
}

// KindOf extracts the failure kind, defaulting to FailureSourceUnavailable
// for unclassified errors.
func KindOf(err error) FailureKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return FailureSourceUnavailable
}
