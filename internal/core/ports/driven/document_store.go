package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// DocumentStore handles document persistence.
// Text fields have one setter each so that every field is written only
// by the stage that produces it.
type DocumentStore interface {
	// Save creates or updates a document
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// GetMany retrieves the documents that exist among ids, keyed by ID
	GetMany(ctx context.Context, ids []string) (map[string]*domain.Document, error)

	// List retrieves documents with the given status (empty means all), oldest first
	List(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]*domain.Document, error)

	// UpdateStatus sets the lifecycle status
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error

	// UpdateStatusIf sets the status to `to` only while it is `from` and
	// reports whether it did. Returns domain.ErrNotFound for unknown ids.
	UpdateStatusIf(ctx context.Context, id string, from, to domain.DocumentStatus) (bool, error)

	// SetExtraction stores the extracted text and detected language
	SetExtraction(ctx context.Context, id, text, language string) error

	// SetTranslation stores the translated text
	SetTranslation(ctx context.Context, id, text string) error

	// SetSummary stores the summary
	SetSummary(ctx context.Context, id, summary string) error

	// MarkProcessed sets status processed and processed_at
	MarkProcessed(ctx context.Context, id string, at time.Time) error

	// Delete deletes a document
	Delete(ctx context.Context, id string) error

	// Count returns total document count
	Count(ctx context.Context) (int, error)
}
