package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobType identifies the pipeline a job runs
type JobType string

const (
	// JobTypeFullProcessing runs extraction, translation, summarization and embedding
	JobTypeFullProcessing JobType = "full_processing"
)

// JobStatus represents the current state of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// jobTransitions is the complete job state machine.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusProcessing, JobStatusCancelled},
	JobStatusProcessing: {JobStatusCompleted, JobStatusFailed, JobStatusCancelled},
}

// CanTransitionTo reports whether a job may move from s to next.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SourcesFor returns every status that may transition to next.
// Adapters use it to build compare-and-swap predicates.
func SourcesFor(next JobStatus) []JobStatus {
	var from []JobStatus
	for _, s := range []JobStatus{JobStatusPending, JobStatusProcessing} {
		if s.CanTransitionTo(next) {
			from = append(from, s)
		}
	}
	return from
}

// IsActive returns true for pending and processing jobs.
func (s JobStatus) IsActive() bool {
	return s == JobStatusPending || s == JobStatusProcessing
}

// IsTerminal returns true once no further transition is possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Valid reports whether s is a known job status.
func (s JobStatus) Valid() bool {
	return s.IsActive() || s.IsTerminal()
}

// Job tracks one document's run through the pipeline
type Job struct {
	// ID is the unique identifier for this job
	ID string `json:"id"`

	// DocumentID is the document this job processes
	DocumentID string `json:"document_id"`

	Type   JobType   `json:"job_type"`
	Status JobStatus `json:"status"`

	// CurrentStep is the name of the stage in progress (or last finished)
	CurrentStep string `json:"current_step,omitempty"`

	// Progress is 0-100
	Progress int `json:"progress"`

	// ErrorMessage holds the verbatim failure of a required stage
	ErrorMessage *string `json:"error_message,omitempty"`

	// Warnings collects failures of optional stages
	Warnings []string `json:"warnings,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// NewJob creates a pending job for a document.
func NewJob(documentID string, jobType JobType) *Job {
	return &Job{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		Type:       jobType,
		Status:     JobStatusPending,
		CreatedAt:  time.Now(),
	}
}

// Transition moves the job to next and stamps the matching timestamp.
// It returns ErrInvalidTransition and leaves the job untouched when the
// state machine does not allow the move.
func (j *Job) Transition(next JobStatus, at time.Time) error {
	if !j.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	j.Status = next
	switch next {
	case JobStatusProcessing:
		j.StartedAt = &at
	case JobStatusCompleted:
		j.CompletedAt = &at
		j.Progress = 100
	case JobStatusFailed:
		j.FailedAt = &at
	case JobStatusCancelled:
		j.CancelledAt = &at
	}
	return nil
}

// ClampProgress bounds a progress value to 0-100.
func ClampProgress(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// Clone returns a deep copy so stores can hand out jobs without sharing state.
func (j *Job) Clone() *Job {
	c := *j
	if j.Warnings != nil {
		c.Warnings = append([]string(nil), j.Warnings...)
	}
	if j.ErrorMessage != nil {
		msg := *j.ErrorMessage
		c.ErrorMessage = &msg
	}
	c.StartedAt = cloneTime(j.StartedAt)
	c.CompletedAt = cloneTime(j.CompletedAt)
	c.FailedAt = cloneTime(j.FailedAt)
	c.CancelledAt = cloneTime(j.CancelledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// JobFilter narrows job listings
type JobFilter struct {
	DocumentID string
	Status     JobStatus
	Limit      int
	Offset     int
}

// QueueStats contains job counts by status
type QueueStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
	Cancelled  int64 `json:"cancelled"`
}

// Add increments the counter for status by n.
func (s *QueueStats) Add(status JobStatus, n int64) {
	switch status {
	case JobStatusPending:
		s.Pending += n
	case JobStatusProcessing:
		s.Processing += n
	case JobStatusCompleted:
		s.Completed += n
	case JobStatusFailed:
		s.Failed += n
	case JobStatusCancelled:
		s.Cancelled += n
	}
}
