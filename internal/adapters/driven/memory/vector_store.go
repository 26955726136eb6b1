package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/similarity"
)

// Verify interface compliance
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is a brute-force cosine vector store.
// Each document maps to an immutable chunk slice that is swapped whole
// under the write lock, so searches never see a partial generation.
type VectorStore struct {
	mu        sync.RWMutex
	dimension int
	docs      map[string][]*domain.Chunk
}

// NewVectorStore creates an empty store with no dimension.
func NewVectorStore() *VectorStore {
	return &VectorStore{docs: make(map[string][]*domain.Chunk)}
}

// ReplaceChunks implements driven.VectorStore.
func (s *VectorStore) ReplaceChunks(ctx context.Context, documentID string, chunks []*domain.Chunk) error {
	dim, err := domain.BatchDimension(chunks)
	if err != nil {
		return err
	}

	generation := make([]*domain.Chunk, len(chunks))
	for i, c := range chunks {
		cp := *c
		cp.DocumentID = documentID
		cp.Embedding = append([]float32(nil), c.Embedding...)
		generation[i] = &cp
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(generation) == 0 {
		delete(s.docs, documentID)
		return nil
	}
	if s.dimension != 0 && s.dimension != dim {
		return fmt.Errorf("%w: store has %d, got %d", domain.ErrDimensionMismatch, s.dimension, dim)
	}
	s.dimension = dim
	s.docs[documentID] = generation
	return nil
}

// Search implements driven.VectorStore.
func (s *VectorStore) Search(ctx context.Context, query []float32, k int) ([]*domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dimension == 0 {
		return []*domain.ScoredChunk{}, nil
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: store has %d, query has %d", domain.ErrDimensionMismatch, s.dimension, len(query))
	}

	top := similarity.NewTopK(k)
	for _, generation := range s.docs {
		for _, c := range generation {
			top.Offer(query, c)
		}
	}

	results := top.Results()
	// Hand out copies; stored chunks are shared between readers
	for i, r := range results {
		cp := *r.Chunk
		results[i] = &domain.ScoredChunk{Chunk: &cp, Score: r.Score}
	}
	return results, nil
}

// GetByDocument implements driven.VectorStore.
func (s *VectorStore) GetByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error) {
	s.mu.RLock()
	generation := s.docs[documentID]
	s.mu.RUnlock()

	out := make([]*domain.Chunk, len(generation))
	for i, c := range generation {
		cp := *c
		out[i] = &cp
	}
	return out, nil
}

// DeleteByDocument implements driven.VectorStore.
func (s *VectorStore) DeleteByDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, documentID)
	return nil
}

// Reindex implements driven.VectorStore.
func (s *VectorStore) Reindex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string][]*domain.Chunk)
	s.dimension = 0
	return nil
}

// Dimension implements driven.VectorStore.
func (s *VectorStore) Dimension(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension, nil
}

// Count implements driven.VectorStore.
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, generation := range s.docs {
		n += len(generation)
	}
	return n, nil
}
