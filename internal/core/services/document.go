package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

// documentService implements the DocumentService interface
type documentService struct {
	documents driven.DocumentStore
	content   driven.ContentStore
	vectors   driven.VectorStore
	queue     driven.JobQueue
	jobs      *JobLifecycle
	logger    *slog.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	documents driven.DocumentStore,
	content driven.ContentStore,
	vectors driven.VectorStore,
	queue driven.JobQueue,
	logger *slog.Logger,
) driving.DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		documents: documents,
		content:   content,
		vectors:   vectors,
		queue:     queue,
		jobs:      NewJobLifecycle(queue, documents, logger),
		logger:    logger,
	}
}

// Register stores the raw content and creates an uploaded document
func (s *documentService) Register(ctx context.Context, req driving.RegisterDocumentRequest) (*domain.Document, error) {
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: content is required", domain.ErrInvalidInput)
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := s.documents.Get(ctx, id); err == nil {
		return nil, fmt.Errorf("%w: document %s already exists", domain.ErrInvalidInput, id)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	ref, err := s.content.Put(ctx, id, req.Content)
	if err != nil {
		return nil, fmt.Errorf("store content: %w", err)
	}

	doc := domain.NewDocument(id, ref, req.MimeType, req.Title)
	if err := s.documents.Save(ctx, doc); err != nil {
		_ = s.content.Delete(ctx, ref)
		return nil, err
	}

	s.logger.Info("document registered", "document_id", id, "mime_type", req.MimeType, "bytes", len(req.Content))
	return doc, nil
}

// Get retrieves a document by ID
func (s *documentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.documents.Get(ctx, id)
}

// List retrieves documents by status (empty means all)
func (s *documentService) List(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]*domain.Document, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown document status %q", domain.ErrInvalidInput, status)
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return s.documents.List(ctx, status, limit, offset)
}

// Delete cancels the active job, drops the chunks, the content and the document.
// A job that is mid-stage finishes that stage against a missing document and fails.
func (s *documentService) Delete(ctx context.Context, id string) error {
	doc, err := s.documents.Get(ctx, id)
	if err != nil {
		return err
	}

	if job, err := s.queue.LatestForDocument(ctx, id); err == nil && job.Status.IsActive() {
		if _, err := s.jobs.Cancel(ctx, job.ID); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
			return fmt.Errorf("cancel job %s: %w", job.ID, err)
		}
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	if err := s.vectors.DeleteByDocument(ctx, id); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.documents.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.content.Delete(ctx, doc.ContentRef); err != nil {
		s.logger.Warn("failed to delete content", "document_id", id, "error", err)
	}

	s.logger.Info("document deleted", "document_id", id)
	return nil
}
