package driving

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// SearchService handles semantic retrieval
type SearchService interface {
	// SemanticSearch embeds query and returns the k most similar chunks.
	// k <= 0 uses the default; k is capped at domain.MaxSearchLimit.
	SemanticSearch(ctx context.Context, query string, k int) (*domain.SearchResult, error)
}
