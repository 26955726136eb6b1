package driving

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// ReindexReport summarizes a reindex run
type ReindexReport struct {
	ClearedChunks int `json:"cleared_chunks"`
	Requeued      int `json:"requeued"`
	Failed        int `json:"failed"`
}

// IngestionService is the processing surface offered to the host application.
// Every re-run path (HTTP, CLI, reindex) goes through RequestProcessing.
type IngestionService interface {
	// RequestProcessing enqueues a full processing job for the document.
	// An already active job is returned instead of creating a second one.
	RequestProcessing(ctx context.Context, documentID string) (*domain.Job, error)

	// GetJobStatus returns the latest job of the document
	GetJobStatus(ctx context.Context, documentID string) (*domain.Job, error)

	// CancelJob cancels a pending or processing job
	CancelJob(ctx context.Context, jobID string) (*domain.Job, error)

	// Reindex clears the vector store and requests processing for every processed document
	Reindex(ctx context.Context) (*ReindexReport, error)

	// QueueStats returns job counts by status
	QueueStats(ctx context.Context) (*domain.QueueStats, error)
}
