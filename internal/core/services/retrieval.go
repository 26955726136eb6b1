package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/runtime"
)

// Ensure retrievalService implements SearchService
var _ driving.SearchService = (*retrievalService)(nil)

// retrievalService answers semantic queries. It never writes.
type retrievalService struct {
	vectors   driven.VectorStore
	documents driven.DocumentStore
	services  *runtime.Services
	logger    *slog.Logger
}

// NewRetrievalService creates a new SearchService.
// The embedding service is looked up per query via runtime.Services.
func NewRetrievalService(
	vectors driven.VectorStore,
	documents driven.DocumentStore,
	services *runtime.Services,
	logger *slog.Logger,
) driving.SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &retrievalService{
		vectors:   vectors,
		documents: documents,
		services:  services,
		logger:    logger,
	}
}

// SemanticSearch implements driving.SearchService.
func (s *retrievalService) SemanticSearch(ctx context.Context, query string, k int) (*domain.SearchResult, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	k = domain.NormalizeLimit(k)

	embedding, err := s.services.EmbeddingService().EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.NewStageError(domain.StageEmbedding, err)
	}

	hits, err := s.vectors.Search(ctx, embedding, k)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(hits))
	seen := make(map[string]bool, len(hits))
	for _, hit := range hits {
		if id := hit.Chunk.DocumentID; !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	// Documents are best effort; chunks are the answer.
	docs, err := s.documents.GetMany(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to load documents for search results", "error", err)
		docs = nil
	}

	results := make([]*domain.RankedChunk, len(hits))
	for i, hit := range hits {
		results[i] = &domain.RankedChunk{
			Chunk:      hit.Chunk,
			DocumentID: hit.Chunk.DocumentID,
			Document:   docs[hit.Chunk.DocumentID],
			Score:      hit.Score,
		}
	}

	return &domain.SearchResult{
		Query:   query,
		Results: results,
		Took:    time.Since(start),
	}, nil
}
