package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.JobQueue = (*JobQueue)(nil)

const jobColumns = `id, document_id, job_type, status, current_step, progress, error_message,
	warnings, created_at, started_at, completed_at, failed_at, cancelled_at`

// claimAttempts bounds retries after losing a claim race
const claimAttempts = 3

// JobQueue implements driven.JobQueue on the jobs table.
// Claims use SELECT ... FOR UPDATE SKIP LOCKED; every transition is a
// conditional UPDATE on the allowed source statuses.
type JobQueue struct {
	db           *DB
	pollInterval time.Duration
}

// NewJobQueue creates a Postgres-backed job queue.
// Assumes the schema has been applied via DB.InitSchema.
func NewJobQueue(db *DB) *JobQueue {
	return &JobQueue{db: db, pollInterval: 500 * time.Millisecond}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var errorMessage sql.NullString
	var warnings pq.StringArray
	var startedAt, completedAt, failedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.DocumentID,
		&job.Type,
		&job.Status,
		&job.CurrentStep,
		&job.Progress,
		&errorMessage,
		&warnings,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
		&failedAt,
		&cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	job.ErrorMessage = StringPtr(errorMessage)
	if len(warnings) > 0 {
		job.Warnings = []string(warnings)
	}
	job.StartedAt = TimePtr(startedAt)
	job.CompletedAt = TimePtr(completedAt)
	job.FailedAt = TimePtr(failedAt)
	job.CancelledAt = TimePtr(cancelledAt)
	return &job, nil
}

// Enqueue implements driven.JobQueue. Concurrent calls for one document
// serialize on a transaction-scoped advisory lock; the partial unique
// index on active jobs backs it up.
func (q *JobQueue) Enqueue(ctx context.Context, documentID string, jobType domain.JobType) (*domain.Job, bool, error) {
	var job *domain.Job
	var created bool

	err := q.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryKey("job", documentID)); err != nil {
			return fmt.Errorf("lock document: %w", err)
		}

		existing, err := scanJob(tx.QueryRowContext(ctx, `
			SELECT `+jobColumns+`
			FROM jobs
			WHERE document_id = $1 AND job_type = $2 AND status IN ('pending', 'processing')
			LIMIT 1
		`, documentID, jobType))
		if err == nil {
			job = existing
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("select active job: %w", err)
		}

		// Only terminal jobs can remain at this point
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM jobs WHERE document_id = $1 AND job_type = $2`, documentID, jobType); err != nil {
			return fmt.Errorf("delete stale jobs: %w", err)
		}

		job = domain.NewJob(documentID, jobType)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO jobs (id, document_id, job_type, status, progress, created_at)
			VALUES ($1, $2, $3, $4, 0, $5)
		`, job.ID, job.DocumentID, job.Type, job.Status, job.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			existing, getErr := q.activeFor(ctx, documentID, jobType)
			if getErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	return job, created, nil
}

func (q *JobQueue) activeFor(ctx context.Context, documentID string, jobType domain.JobType) (*domain.Job, error) {
	job, err := scanJob(q.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE document_id = $1 AND job_type = $2 AND status IN ('pending', 'processing')
	`, documentID, jobType))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

// Claim implements driven.JobQueue.
func (q *JobQueue) Claim(ctx context.Context) (*domain.Job, error) {
	for attempt := 0; attempt < claimAttempts; attempt++ {
		job, err := q.claimOnce(ctx)
		if errors.Is(err, domain.ErrJobClaimConflict) {
			continue
		}
		return job, err
	}
	return nil, nil
}

func (q *JobQueue) claimOnce(ctx context.Context) (*domain.Job, error) {
	var job *domain.Job

	err := q.db.Transaction(ctx, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx, `
			SELECT id
			FROM jobs
			WHERE status = 'pending'
			ORDER BY created_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		`).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("select pending job: %w", err)
		}

		job, err = scanJob(tx.QueryRowContext(ctx, `
			UPDATE jobs
			SET status = 'processing', started_at = $2
			WHERE id = $1 AND status = 'pending'
			RETURNING `+jobColumns, id, time.Now()))
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrJobClaimConflict
		}
		if err != nil {
			return fmt.Errorf("claim job: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ClaimWithTimeout implements driven.JobQueue by polling.
func (q *JobQueue) ClaimWithTimeout(ctx context.Context, timeout time.Duration) (*domain.Job, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()

	for {
		job, err := q.Claim(ctx)
		if err != nil || job != nil {
			return job, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, nil
		case <-ticker.C:
		}
	}
}

// transition moves a job to next when its current status allows it.
// set holds extra assignments using placeholders from $4 on.
func (q *JobQueue) transition(ctx context.Context, jobID string, next domain.JobStatus, set string, args ...any) error {
	from := domain.SourcesFor(next)
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}

	query := `UPDATE jobs SET status = $1`
	if set != "" {
		query += ", " + set
	}
	query += ` WHERE id = $2 AND status = ANY($3)`

	res, err := q.db.ExecContext(ctx, query, append([]any{next, jobID, pq.Array(statuses)}, args...)...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", jobID, err)
	}
	return q.checkAffected(ctx, jobID, res)
}

// checkAffected tells a missing job apart from a rejected transition.
func (q *JobQueue) checkAffected(ctx context.Context, jobID string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := q.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, jobID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrInvalidTransition
}

// ReportProgress implements driven.JobQueue.
func (q *JobQueue) ReportProgress(ctx context.Context, jobID, step string, percent int) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE jobs SET current_step = $2, progress = $3
		WHERE id = $1 AND status IN ('pending', 'processing')
	`, jobID, step, domain.ClampProgress(percent))
	if err != nil {
		return fmt.Errorf("report progress: %w", err)
	}
	return q.checkAffected(ctx, jobID, res)
}

// AddWarning implements driven.JobQueue.
func (q *JobQueue) AddWarning(ctx context.Context, jobID, warning string) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE jobs SET warnings = array_append(warnings, $2)
		WHERE id = $1 AND status = 'processing'
	`, jobID, warning)
	if err != nil {
		return fmt.Errorf("add warning: %w", err)
	}
	return q.checkAffected(ctx, jobID, res)
}

// Complete implements driven.JobQueue.
func (q *JobQueue) Complete(ctx context.Context, jobID string) error {
	return q.transition(ctx, jobID, domain.JobStatusCompleted, "completed_at = $4, progress = 100", time.Now())
}

// Fail implements driven.JobQueue.
func (q *JobQueue) Fail(ctx context.Context, jobID, message string) error {
	return q.transition(ctx, jobID, domain.JobStatusFailed, "failed_at = $4, error_message = $5", time.Now(), message)
}

// Cancel implements driven.JobQueue.
func (q *JobQueue) Cancel(ctx context.Context, jobID string) error {
	return q.transition(ctx, jobID, domain.JobStatusCancelled, "cancelled_at = $4", time.Now())
}

// Get implements driven.JobQueue.
func (q *JobQueue) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := scanJob(q.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

// LatestForDocument implements driven.JobQueue.
func (q *JobQueue) LatestForDocument(ctx context.Context, documentID string) (*domain.Job, error) {
	job, err := scanJob(q.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

// List implements driven.JobQueue.
func (q *JobQueue) List(ctx context.Context, filter domain.JobFilter) ([]*domain.Job, error) {
	var where []string
	var args []any

	if filter.DocumentID != "" {
		args = append(args, filter.DocumentID)
		where = append(where, fmt.Sprintf("document_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func scanJobs(rows *sql.Rows) ([]*domain.Job, error) {
	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// FailStale implements driven.JobQueue.
func (q *JobQueue) FailStale(ctx context.Context, cutoff time.Time, message string) ([]*domain.Job, error) {
	rows, err := q.db.QueryContext(ctx, `
		UPDATE jobs
		SET status = 'failed', failed_at = $2, error_message = $3
		WHERE status = 'processing' AND started_at < $1
		RETURNING `+jobColumns, cutoff, time.Now(), message)
	if err != nil {
		return nil, fmt.Errorf("fail stale jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// Stats implements driven.JobQueue.
func (q *JobQueue) Stats(ctx context.Context) (*domain.QueueStats, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := &domain.QueueStats{}
	for rows.Next() {
		var status domain.JobStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.Add(status, count)
	}
	return stats, rows.Err()
}

// Ping implements driven.JobQueue.
func (q *JobQueue) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}

// Close implements driven.JobQueue. The pool belongs to the caller.
func (q *JobQueue) Close() error {
	return nil
}
