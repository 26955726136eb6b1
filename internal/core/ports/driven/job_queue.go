package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// JobQueue owns the job lifecycle. Implementations exist for Postgres,
// Redis and memory; all of them enforce domain.JobStatus.CanTransitionTo.
type JobQueue interface {
	// Enqueue returns the active (pending or processing) job for the
	// document and type if one exists, with created=false. Otherwise it
	// deletes terminal leftovers for the pair and inserts a pending job.
	// The check and the insert are atomic.
	Enqueue(ctx context.Context, documentID string, jobType domain.JobType) (job *domain.Job, created bool, err error)

	// Claim moves the oldest pending job to processing and returns it.
	// Returns nil, nil when no job is pending. Two callers never receive
	// the same job.
	Claim(ctx context.Context) (*domain.Job, error)

	// ClaimWithTimeout is Claim that waits up to timeout for a pending job.
	// Returns nil, nil if timeout is reached with no job available.
	ClaimWithTimeout(ctx context.Context, timeout time.Duration) (*domain.Job, error)

	// ReportProgress updates current_step and progress of a non-terminal job.
	// Status is never changed.
	ReportProgress(ctx context.Context, jobID, step string, percent int) error

	// AddWarning records an optional-stage failure on a processing job.
	AddWarning(ctx context.Context, jobID, warning string) error

	// Complete moves a processing job to completed.
	Complete(ctx context.Context, jobID string) error

	// Fail moves a processing job to failed and stores message verbatim.
	Fail(ctx context.Context, jobID, message string) error

	// Cancel moves a pending or processing job to cancelled.
	Cancel(ctx context.Context, jobID string) error

	// Get retrieves a job by ID.
	Get(ctx context.Context, jobID string) (*domain.Job, error)

	// LatestForDocument returns the most recently created job for a document.
	LatestForDocument(ctx context.Context, documentID string) (*domain.Job, error)

	// List retrieves jobs matching the filter, newest first.
	List(ctx context.Context, filter domain.JobFilter) ([]*domain.Job, error)

	// FailStale fails processing jobs whose started_at is before cutoff
	// and returns them.
	FailStale(ctx context.Context, cutoff time.Time, message string) ([]*domain.Job, error)

	// Stats returns job counts by status.
	Stats(ctx context.Context) (*domain.QueueStats, error)

	// Ping checks if the queue backend is healthy.
	Ping(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}
