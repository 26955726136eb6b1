package mocks

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*MockEmbeddingService)(nil)

// MockEmbeddingService returns deterministic embeddings derived from a
// hash of the text, so equal texts get equal vectors.
type MockEmbeddingService struct {
	mu         sync.Mutex
	dimensions int
	model      string
	embedFn    func(texts []string) ([][]float32, error)
	embedded   int
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{
		dimensions: 384,
		model:      "mock-embedding-model",
	}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	fn := m.embedFn
	m.embedded += len(texts)
	dim := m.dimensions
	m.mu.Unlock()

	if fn != nil {
		return fn(texts)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = Vector(text, dim)
	}
	return result, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	out, err := m.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *MockEmbeddingService) Dimensions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dimensions
}

func (m *MockEmbeddingService) Model() string {
	return m.model
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockEmbeddingService) Close() error {
	return nil
}

// Vector generates a deterministic embedding of dim values for text.
func Vector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	embedding := make([]float32, dim)
	for i := range embedding {
		// Generate deterministic pseudo-random values
		seed = seed*1103515245 + 12345
		embedding[i] = float32(seed%1000)/1000.0 - 0.5
	}
	return embedding
}

// Helper methods for testing

// SetEmbedFn replaces the embedding behaviour.
func (m *MockEmbeddingService) SetEmbedFn(fn func(texts []string) ([][]float32, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedFn = fn
}

// SetDimensions switches the model's output size.
func (m *MockEmbeddingService) SetDimensions(dim int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimensions = dim
	m.model = "mock-embedding-model"
}

// EmbeddedCount returns how many texts have been embedded.
func (m *MockEmbeddingService) EmbeddedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedded
}
