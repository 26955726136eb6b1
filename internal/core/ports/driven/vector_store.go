package driven

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// VectorStore persists chunk embeddings and answers nearest-neighbour queries.
//
// All stored embeddings share one dimension D. D is established by the
// first non-empty write and only Reindex can unset it.
type VectorStore interface {
	// ReplaceChunks swaps the document's chunk set for chunks in one step.
	// Readers see either the previous set or the new one, never a mix.
	// Returns domain.ErrDimensionMismatch if any embedding length differs from D.
	ReplaceChunks(ctx context.Context, documentID string, chunks []*domain.Chunk) error

	// Search returns the k chunks most similar to query by cosine score,
	// best first. Equal scores prefer the more recently indexed chunk.
	// Returns domain.ErrDimensionMismatch if len(query) != D.
	Search(ctx context.Context, query []float32, k int) ([]*domain.ScoredChunk, error)

	// GetByDocument returns the document's current chunks ordered by index
	GetByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error)

	// DeleteByDocument removes all chunks of a document
	DeleteByDocument(ctx context.Context, documentID string) error

	// Reindex removes every chunk and unsets D
	Reindex(ctx context.Context) error

	// Dimension returns D, or 0 while unset
	Dimension(ctx context.Context) (int, error)

	// Count returns the number of stored chunks
	Count(ctx context.Context) (int, error)
}
