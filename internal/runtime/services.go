package runtime

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Fallback implements every capability, typically by refusing the call.
// It fills any slot that has no real provider.
type Fallback interface {
	driven.Extractor
	driven.Translator
	driven.Summarizer
	driven.EmbeddingService
}

// Status reports which capabilities have a real provider.
type Status struct {
	Extraction          bool   `json:"extraction"`
	Translation         bool   `json:"translation"`
	Summarization       bool   `json:"summarization"`
	Embedding           bool   `json:"embedding"`
	EmbeddingModel      string `json:"embedding_model,omitempty"`
	EmbeddingDimensions int    `json:"embedding_dimensions,omitempty"`
}

// Services holds the capability adapters used by the pipeline and the
// retrieval engine. Slots can be swapped at runtime and are never nil.
// Thread-safe for concurrent access.
type Services struct {
	mu       sync.RWMutex
	fallback Fallback

	extractor  driven.Extractor
	translator driven.Translator
	summarizer driven.Summarizer
	embedding  driven.EmbeddingService

	status Status
}

// NewServices creates a registry with every slot set to fallback.
func NewServices(fallback Fallback) *Services {
	return &Services{
		fallback:   fallback,
		extractor:  fallback,
		translator: fallback,
		summarizer: fallback,
		embedding:  fallback,
	}
}

// Extractor returns the current extractor
func (s *Services) Extractor() driven.Extractor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.extractor
}

// Translator returns the current translator
func (s *Services) Translator() driven.Translator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.translator
}

// Summarizer returns the current summarizer
func (s *Services) Summarizer() driven.Summarizer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summarizer
}

// EmbeddingService returns the current embedding service
func (s *Services) EmbeddingService() driven.EmbeddingService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.embedding
}

// Status returns a snapshot of which providers are configured.
func (s *Services) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetExtractor replaces the extractor. nil restores the fallback.
func (s *Services) SetExtractor(svc driven.Extractor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Extraction = svc != nil
	if svc == nil {
		svc = s.fallback
	}
	s.extractor = svc
}

// SetTranslator replaces the translator. nil restores the fallback.
func (s *Services) SetTranslator(svc driven.Translator) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Translation = svc != nil
	if svc == nil {
		svc = s.fallback
	}
	s.translator = svc
}

// SetSummarizer replaces the summarizer. nil restores the fallback.
func (s *Services) SetSummarizer(svc driven.Summarizer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Summarization = svc != nil
	if svc == nil {
		svc = s.fallback
	}
	s.summarizer = svc
}

// SetEmbeddingService updates the embedding service.
// Closes the old service if present. nil restores the fallback.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.embedding != nil && s.embedding != driven.EmbeddingService(s.fallback) {
		_ = s.embedding.Close()
	}

	s.status.Embedding = svc != nil
	s.status.EmbeddingModel = ""
	s.status.EmbeddingDimensions = 0
	if svc == nil {
		svc = s.fallback
	} else {
		s.status.EmbeddingModel = svc.Model()
		s.status.EmbeddingDimensions = svc.Dimensions()
	}
	s.embedding = svc
}

// ValidateAndSetEmbedding validates connectivity before setting embedding service
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc == nil {
		s.SetEmbeddingService(nil)
		return nil
	}

	// Validate connectivity
	if err := svc.HealthCheck(ctx); err != nil {
		_ = svc.Close()
		return err
	}

	s.SetEmbeddingService(svc)
	return nil
}

// Close shuts down all services
func (s *Services) Close() error {
	s.SetEmbeddingService(nil)
	s.SetExtractor(nil)
	s.SetTranslator(nil)
	s.SetSummarizer(nil)
	return nil
}
