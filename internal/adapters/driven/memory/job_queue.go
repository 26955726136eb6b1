// Package memory provides in-process implementations of the driven ports.
// They back single-binary deployments and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.JobQueue = (*JobQueue)(nil)

// JobQueue is a mutex-guarded job queue.
type JobQueue struct {
	mu     sync.Mutex
	jobs   map[string]*domain.Job
	order  map[string]uint64 // enqueue sequence, FIFO tie-break for equal created_at
	seq    uint64
	wakeup chan struct{}
	now    func() time.Time
}

// NewJobQueue creates an empty queue.
func NewJobQueue() *JobQueue {
	return &JobQueue{
		jobs:   make(map[string]*domain.Job),
		order:  make(map[string]uint64),
		wakeup: make(chan struct{}),
		now:    time.Now,
	}
}

// Enqueue implements driven.JobQueue.
func (q *JobQueue) Enqueue(ctx context.Context, documentID string, jobType domain.JobType) (*domain.Job, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id, job := range q.jobs {
		if job.DocumentID != documentID || job.Type != jobType {
			continue
		}
		if job.Status.IsActive() {
			return job.Clone(), false, nil
		}
		delete(q.jobs, id)
		delete(q.order, id)
	}

	job := domain.NewJob(documentID, jobType)
	job.CreatedAt = q.now()
	q.jobs[job.ID] = job
	q.seq++
	q.order[job.ID] = q.seq

	// Wake every waiting claimer
	close(q.wakeup)
	q.wakeup = make(chan struct{})

	return job.Clone(), true, nil
}

// Claim implements driven.JobQueue.
func (q *JobQueue) Claim(ctx context.Context) (*domain.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.claimLocked(), nil
}

func (q *JobQueue) claimLocked() *domain.Job {
	var oldest *domain.Job
	for _, job := range q.jobs {
		if job.Status != domain.JobStatusPending {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) ||
			(job.CreatedAt.Equal(oldest.CreatedAt) && q.order[job.ID] < q.order[oldest.ID]) {
			oldest = job
		}
	}
	if oldest == nil {
		return nil
	}
	_ = oldest.Transition(domain.JobStatusProcessing, q.now())
	return oldest.Clone()
}

// ClaimWithTimeout implements driven.JobQueue.
func (q *JobQueue) ClaimWithTimeout(ctx context.Context, timeout time.Duration) (*domain.Job, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		job := q.claimLocked()
		wakeup := q.wakeup
		q.mu.Unlock()

		if job != nil {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-wakeup:
		}
	}
}

// ReportProgress implements driven.JobQueue.
func (q *JobQueue) ReportProgress(ctx context.Context, jobID, step string, percent int) error {
	return q.update(jobID, func(job *domain.Job) error {
		if job.Status.IsTerminal() {
			return domain.ErrInvalidTransition
		}
		job.CurrentStep = step
		job.Progress = domain.ClampProgress(percent)
		return nil
	})
}

// AddWarning implements driven.JobQueue.
func (q *JobQueue) AddWarning(ctx context.Context, jobID, warning string) error {
	return q.update(jobID, func(job *domain.Job) error {
		if job.Status != domain.JobStatusProcessing {
			return domain.ErrInvalidTransition
		}
		job.Warnings = append(job.Warnings, warning)
		return nil
	})
}

// Complete implements driven.JobQueue.
func (q *JobQueue) Complete(ctx context.Context, jobID string) error {
	return q.update(jobID, func(job *domain.Job) error {
		return job.Transition(domain.JobStatusCompleted, q.now())
	})
}

// Fail implements driven.JobQueue.
func (q *JobQueue) Fail(ctx context.Context, jobID, message string) error {
	return q.update(jobID, func(job *domain.Job) error {
		if err := job.Transition(domain.JobStatusFailed, q.now()); err != nil {
			return err
		}
		job.ErrorMessage = &message
		return nil
	})
}

// Cancel implements driven.JobQueue.
func (q *JobQueue) Cancel(ctx context.Context, jobID string) error {
	return q.update(jobID, func(job *domain.Job) error {
		return job.Transition(domain.JobStatusCancelled, q.now())
	})
}

func (q *JobQueue) update(jobID string, fn func(*domain.Job) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	// Apply to a copy so a rejected change leaves the job untouched
	next := job.Clone()
	if err := fn(next); err != nil {
		return err
	}
	q.jobs[jobID] = next
	return nil
}

// Get implements driven.JobQueue.
func (q *JobQueue) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job.Clone(), nil
}

// LatestForDocument implements driven.JobQueue.
func (q *JobQueue) LatestForDocument(ctx context.Context, documentID string) (*domain.Job, error) {
	jobs, err := q.List(ctx, domain.JobFilter{DocumentID: documentID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, domain.ErrNotFound
	}
	return jobs[0], nil
}

// List implements driven.JobQueue.
func (q *JobQueue) List(ctx context.Context, filter domain.JobFilter) ([]*domain.Job, error) {
	q.mu.Lock()
	var out []*domain.Job
	order := make(map[string]uint64)
	for _, job := range q.jobs {
		if filter.DocumentID != "" && job.DocumentID != filter.DocumentID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		out = append(out, job.Clone())
		order[job.ID] = q.order[job.ID]
	}
	q.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return order[out[i].ID] > order[out[j].ID]
	})
	return paginate(out, filter.Limit, filter.Offset), nil
}

// FailStale implements driven.JobQueue.
func (q *JobQueue) FailStale(ctx context.Context, cutoff time.Time, message string) ([]*domain.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var failed []*domain.Job
	for id, job := range q.jobs {
		if job.Status != domain.JobStatusProcessing || job.StartedAt == nil || !job.StartedAt.Before(cutoff) {
			continue
		}
		next := job.Clone()
		_ = next.Transition(domain.JobStatusFailed, q.now())
		msg := message
		next.ErrorMessage = &msg
		q.jobs[id] = next
		failed = append(failed, next.Clone())
	}
	return failed, nil
}

// Stats implements driven.JobQueue.
func (q *JobQueue) Stats(ctx context.Context) (*domain.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := &domain.QueueStats{}
	for _, job := range q.jobs {
		stats.Add(job.Status, 1)
	}
	return stats, nil
}

// Ping implements driven.JobQueue.
func (q *JobQueue) Ping(ctx context.Context) error {
	return nil
}

// Close implements driven.JobQueue.
func (q *JobQueue) Close() error {
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
