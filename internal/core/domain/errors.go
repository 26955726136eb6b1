package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrExtraction indicates the content could not be turned into text
	ErrExtraction = errors.New("extraction failed")

	// ErrTranslation indicates the text could not be translated
	ErrTranslation = errors.New("translation failed")

	// ErrSummarization indicates the summary could not be produced (non-fatal)
	ErrSummarization = errors.New("summarization failed")

	// ErrEmbedding indicates the embedding service failed
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimensionMismatch indicates a vector length differs from the store's dimension
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrJobClaimConflict indicates another worker claimed the job first
	ErrJobClaimConflict = errors.New("job already claimed")

	// ErrExternalServiceTimeout indicates an external capability did not answer in time
	ErrExternalServiceTimeout = errors.New("external service timeout")

	// ErrUnconfigured indicates a capability has no backing provider
	ErrUnconfigured = errors.New("capability not configured")

	// ErrInvalidTransition indicates a job status change outside the state machine
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrJobCancelled indicates the job was cancelled while it was running
	ErrJobCancelled = errors.New("job cancelled")

	// ErrReindexInProgress indicates another instance holds the reindex lock
	ErrReindexInProgress = errors.New("reindex already in progress")

	// ErrServiceUnavailable indicates a backing service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Stage names a pipeline stage
type Stage string

const (
	StageExtraction    Stage = "extraction"
	StageTranslation   Stage = "translation"
	StageSummarization Stage = "summarization"
	StageEmbedding     Stage = "embedding"
)

// StageError is a pipeline stage failure. It matches both its kind
// (ErrExtraction, ErrTranslation, ...) and its cause under errors.Is.
type StageError struct {
	Stage Stage
	Kind  error
	Err   error
}

// NewStageError builds a StageError with the kind that belongs to stage.
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Kind: stage.Kind(), Err: err}
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Kind returns the error kind reported for failures of this stage.
func (s Stage) Kind() error {
	switch s {
	case StageExtraction:
		return ErrExtraction
	case StageTranslation:
		return ErrTranslation
	case StageSummarization:
		return ErrSummarization
	case StageEmbedding:
		return ErrEmbedding
	}
	return fmt.Errorf("%s failed", string(s))
}

// Progress returns the job progress reported once the stage has finished.
func (s Stage) Progress() int {
	switch s {
	case StageExtraction:
		return 25
	case StageTranslation:
		return 50
	case StageSummarization:
		return 75
	case StageEmbedding:
		return 100
	}
	return 0
}
