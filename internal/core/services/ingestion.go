package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

// Ensure ingestionService implements IngestionService
var _ driving.IngestionService = (*ingestionService)(nil)

// IngestionConfig holds the collaborators of the ingestion service.
type IngestionConfig struct {
	Queue     driven.JobQueue
	Documents driven.DocumentStore
	Vectors   driven.VectorStore
	Lock      driven.DistributedLock // Optional: guards Reindex across instances
	Logger    *slog.Logger
	LockTTL   time.Duration // default 10m
}

type ingestionService struct {
	queue     driven.JobQueue
	documents driven.DocumentStore
	vectors   driven.VectorStore
	jobs      *JobLifecycle
	lock      driven.DistributedLock
	lockTTL   time.Duration
	logger    *slog.Logger
}

// NewIngestionService creates a new IngestionService
func NewIngestionService(cfg IngestionConfig) driving.IngestionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &ingestionService{
		queue:     cfg.Queue,
		documents: cfg.Documents,
		vectors:   cfg.Vectors,
		jobs:      NewJobLifecycle(cfg.Queue, cfg.Documents, logger),
		lock:      cfg.Lock,
		lockTTL:   lockTTL,
		logger:    logger,
	}
}

// RequestProcessing implements driving.IngestionService.
func (s *ingestionService) RequestProcessing(ctx context.Context, documentID string) (*domain.Job, error) {
	return s.jobs.Enqueue(ctx, documentID)
}

// GetJobStatus implements driving.IngestionService.
func (s *ingestionService) GetJobStatus(ctx context.Context, documentID string) (*domain.Job, error) {
	return s.queue.LatestForDocument(ctx, documentID)
}

// CancelJob implements driving.IngestionService.
func (s *ingestionService) CancelJob(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.jobs.Cancel(ctx, jobID)
}

// QueueStats implements driving.IngestionService.
func (s *ingestionService) QueueStats(ctx context.Context) (*domain.QueueStats, error) {
	return s.queue.Stats(ctx)
}

// Reindex clears every chunk, unsets the store dimension and requests
// processing for every processed document, plus every failed document whose
// last job failed on an embedding dimension mismatch. It is the only way to
// move the corpus to an embedding model with another dimension. Documents
// that failed for any other reason keep their status; they need an explicit
// request once the cause is fixed.
func (s *ingestionService) Reindex(ctx context.Context) (*driving.ReindexReport, error) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, driven.LockReindex, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire reindex lock: %w", err)
		}
		if !acquired {
			return nil, domain.ErrReindexInProgress
		}
		defer func() {
			if err := s.lock.Release(ctx, driven.LockReindex); err != nil {
				s.logger.Warn("failed to release reindex lock", "error", err)
			}
		}()
	}

	cleared, err := s.vectors.Count(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.vectors.Reindex(ctx); err != nil {
		return nil, fmt.Errorf("clear vector store: %w", err)
	}
	s.logger.Info("vector store cleared", "chunks", cleared)

	report := &driving.ReindexReport{ClearedChunks: cleared}

	// Collect first: requeuing moves documents out of processed and failed.
	ids, err := s.collect(ctx, domain.DocumentStatusProcessed, nil)
	if err != nil {
		return report, err
	}
	mismatched, err := s.collect(ctx, domain.DocumentStatusFailed, s.failedOnDimension)
	if err != nil {
		return report, err
	}
	ids = append(ids, mismatched...)

	for i, id := range ids {
		if i > 0 && i%reindexPage == 0 {
			s.extendLock(ctx)
		}
		if _, err := s.jobs.Enqueue(ctx, id); err != nil {
			s.logger.Error("failed to requeue document", "document_id", id, "error", err)
			report.Failed++
			continue
		}
		report.Requeued++
	}

	s.logger.Info("reindex requested", "requeued", report.Requeued, "failed", report.Failed)
	return report, nil
}

const reindexPage = 100

// collect pages through the documents with status and returns the ids
// accepted by keep (all of them when keep is nil).
func (s *ingestionService) collect(ctx context.Context, status domain.DocumentStatus, keep func(context.Context, string) bool) ([]string, error) {
	var ids []string
	for offset := 0; ; offset += reindexPage {
		docs, err := s.documents.List(ctx, status, reindexPage, offset)
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			if keep == nil || keep(ctx, doc.ID) {
				ids = append(ids, doc.ID)
			}
		}
		if len(docs) < reindexPage {
			return ids, nil
		}
		s.extendLock(ctx)
	}
}

// failedOnDimension reports whether the latest job of the document failed
// with an embedding dimension mismatch.
func (s *ingestionService) failedOnDimension(ctx context.Context, documentID string) bool {
	job, err := s.queue.LatestForDocument(ctx, documentID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("failed to read latest job", "document_id", documentID, "error", err)
		}
		return false
	}
	return job.Status == domain.JobStatusFailed &&
		job.ErrorMessage != nil &&
		strings.Contains(*job.ErrorMessage, domain.ErrDimensionMismatch.Error())
}

// extendLock renews the reindex lock between pages of work.
func (s *ingestionService) extendLock(ctx context.Context) {
	if s.lock == nil {
		return
	}
	if err := s.lock.Extend(ctx, driven.LockReindex, s.lockTTL); err != nil {
		s.logger.Warn("failed to extend reindex lock", "error", err)
	}
}
