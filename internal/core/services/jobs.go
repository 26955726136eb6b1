package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// JobLifecycle keeps a document's status in step with its job. Job status
// changes go through the queue's compare-and-swap; the document follows.
//
//	job pending     -> document queued
//	job processing  -> document processing
//	job completed   -> document processed
//	job failed      -> document failed
//	job cancelled   -> document uploaded
type JobLifecycle struct {
	queue     driven.JobQueue
	documents driven.DocumentStore
	logger    *slog.Logger
}

// NewJobLifecycle creates a JobLifecycle.
func NewJobLifecycle(queue driven.JobQueue, documents driven.DocumentStore, logger *slog.Logger) *JobLifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobLifecycle{queue: queue, documents: documents, logger: logger}
}

// Enqueue requests full processing of an existing document. It returns the
// active job when there already is one.
//
// The document is marked queued before the job is inserted, so every status
// a worker writes for the new job lands after it.
func (l *JobLifecycle) Enqueue(ctx context.Context, documentID string) (*domain.Job, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	doc, err := l.documents.Get(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", documentID, err)
	}
	previous := doc.Status

	if err := l.documents.UpdateStatus(ctx, documentID, domain.DocumentStatusQueued); err != nil {
		return nil, fmt.Errorf("mark document %s queued: %w", documentID, err)
	}

	job, created, err := l.queue.Enqueue(ctx, documentID, domain.JobTypeFullProcessing)
	if err != nil {
		l.unqueue(ctx, documentID, previous)
		return nil, err
	}
	if !created {
		if job.Status == domain.JobStatusProcessing {
			l.unqueue(ctx, documentID, domain.DocumentStatusProcessing)
		}
		l.logger.Debug("processing already requested", "document_id", documentID, "job_id", job.ID)
		return job, nil
	}

	l.logger.Info("processing requested", "document_id", documentID, "job_id", job.ID)
	return job, nil
}

// unqueue moves the document from queued back to status unless a worker
// has written over it since.
func (l *JobLifecycle) unqueue(ctx context.Context, documentID string, status domain.DocumentStatus) {
	if status == domain.DocumentStatusQueued {
		return
	}
	_, err := l.documents.UpdateStatusIf(ctx, documentID, domain.DocumentStatusQueued, status)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		l.logger.Warn("failed to restore document status", "document_id", documentID, "status", status, "error", err)
	}
}

// Started marks the job's document as processing.
func (l *JobLifecycle) Started(ctx context.Context, job *domain.Job) error {
	return l.documents.UpdateStatus(ctx, job.DocumentID, domain.DocumentStatusProcessing)
}

// Succeed completes the job and marks the document processed. The chunks are
// already live at this point, so a cancel that lands after the last stage
// leaves the document processed. A job failed meanwhile by the stale sweep
// stays failed, and so does its document.
func (l *JobLifecycle) Succeed(ctx context.Context, job *domain.Job, at time.Time) error {
	err := l.queue.Complete(ctx, job.ID)
	if errors.Is(err, domain.ErrInvalidTransition) {
		current, err := l.queue.Get(ctx, job.ID)
		if err != nil {
			return fmt.Errorf("get job %s: %w", job.ID, err)
		}
		l.logger.Warn("job changed state before completion",
			"job_id", job.ID, "document_id", job.DocumentID, "status", current.Status)
		if current.Status == domain.JobStatusFailed {
			return l.Failed(ctx, job)
		}
	} else if err != nil {
		return fmt.Errorf("complete job %s: %w", job.ID, err)
	}
	return l.documents.MarkProcessed(ctx, job.DocumentID, at)
}

// Fail records cause verbatim on the job and marks the document failed. When
// the job already reached another terminal status the document follows that
// status instead.
func (l *JobLifecycle) Fail(ctx context.Context, job *domain.Job, cause error) error {
	err := l.queue.Fail(ctx, job.ID, cause.Error())
	if errors.Is(err, domain.ErrInvalidTransition) {
		current, err := l.queue.Get(ctx, job.ID)
		if err != nil {
			return fmt.Errorf("get job %s: %w", job.ID, err)
		}
		switch current.Status {
		case domain.JobStatusCancelled:
			return l.Abandon(ctx, job)
		case domain.JobStatusCompleted:
			at := time.Now()
			if current.CompletedAt != nil {
				at = *current.CompletedAt
			}
			return l.documents.MarkProcessed(ctx, job.DocumentID, at)
		default:
			return l.Failed(ctx, job)
		}
	}
	if err != nil {
		return fmt.Errorf("fail job %s: %w", job.ID, err)
	}
	return l.Failed(ctx, job)
}

// Failed marks the document of an already failed job as failed.
func (l *JobLifecycle) Failed(ctx context.Context, job *domain.Job) error {
	err := l.documents.UpdateStatus(ctx, job.DocumentID, domain.DocumentStatusFailed)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// Abandon returns the document of a cancelled job to uploaded.
func (l *JobLifecycle) Abandon(ctx context.Context, job *domain.Job) error {
	err := l.documents.UpdateStatus(ctx, job.DocumentID, domain.DocumentStatusUploaded)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// Cancel cancels a pending or processing job. A pending job's document
// returns to uploaded at once; a processing job's document follows when
// the worker observes the cancel.
func (l *JobLifecycle) Cancel(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := l.queue.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := l.queue.Cancel(ctx, jobID); err != nil {
		return nil, err
	}
	if job.Status == domain.JobStatusPending {
		if err := l.Abandon(ctx, job); err != nil {
			l.logger.Warn("failed to reset document of cancelled job", "job_id", jobID, "error", err)
		}
	}
	l.logger.Info("job cancelled", "job_id", jobID, "document_id", job.DocumentID, "was", job.Status)
	return l.queue.Get(ctx, jobID)
}

// Cancelled reports whether the job has been cancelled since it was claimed.
func (l *JobLifecycle) Cancelled(ctx context.Context, job *domain.Job) (bool, error) {
	current, err := l.queue.Get(ctx, job.ID)
	if err != nil {
		return false, err
	}
	return current.Status == domain.JobStatusCancelled, nil
}
