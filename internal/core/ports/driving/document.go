package driving

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// RegisterDocumentRequest describes a newly uploaded document
type RegisterDocumentRequest struct {
	// ID is optional; one is generated when empty
	ID       string
	Title    string
	MimeType string
	Content  []byte
}

// DocumentService manages uploaded documents
type DocumentService interface {
	// Register stores the raw content and creates an uploaded document
	Register(ctx context.Context, req RegisterDocumentRequest) (*domain.Document, error)

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List retrieves documents by status (empty means all)
	List(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]*domain.Document, error)

	// Delete cancels the active job, drops the chunks, the content and the document
	Delete(ctx context.Context, id string) error
}
