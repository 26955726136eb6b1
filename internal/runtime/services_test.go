package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

var errUnconfigured = errors.New("unconfigured")

// stubFallback refuses every call
type stubFallback struct{}

func (stubFallback) Extract(context.Context, []byte, string) (*driven.Extraction, error) {
	return nil, errUnconfigured
}
func (stubFallback) Translate(context.Context, string, string) (string, error) {
	return "", errUnconfigured
}
func (stubFallback) Summarize(context.Context, string, int) (string, error) {
	return "", errUnconfigured
}
func (stubFallback) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errUnconfigured
}
func (stubFallback) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, errUnconfigured
}
func (stubFallback) Dimensions() int                   { return 0 }
func (stubFallback) Model() string                     { return "" }
func (stubFallback) HealthCheck(context.Context) error { return errUnconfigured }
func (stubFallback) Close() error                      { return nil }

// mockEmbeddingService is a mock implementation for testing
type mockEmbeddingService struct {
	healthCheckErr error
	closed         bool
}

func (m *mockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

func (m *mockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return nil, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return 384
}

func (m *mockEmbeddingService) Model() string {
	return "test-model"
}

func (m *mockEmbeddingService) HealthCheck(ctx context.Context) error {
	return m.healthCheckErr
}

func (m *mockEmbeddingService) Close() error {
	m.closed = true
	return nil
}

type mockTranslator struct{}

func (mockTranslator) Translate(ctx context.Context, text, target string) (string, error) {
	return text, nil
}

func TestNewServices_AllSlotsFallback(t *testing.T) {
	s := NewServices(stubFallback{})
	ctx := context.Background()

	if _, err := s.Extractor().Extract(ctx, nil, ""); !errors.Is(err, errUnconfigured) {
		t.Errorf("expected fallback extractor, got %v", err)
	}
	if _, err := s.Translator().Translate(ctx, "", ""); !errors.Is(err, errUnconfigured) {
		t.Errorf("expected fallback translator, got %v", err)
	}
	if _, err := s.Summarizer().Summarize(ctx, "", 0); !errors.Is(err, errUnconfigured) {
		t.Errorf("expected fallback summarizer, got %v", err)
	}
	if _, err := s.EmbeddingService().EmbedQuery(ctx, ""); !errors.Is(err, errUnconfigured) {
		t.Errorf("expected fallback embedding, got %v", err)
	}

	status := s.Status()
	if status.Extraction || status.Translation || status.Summarization || status.Embedding {
		t.Errorf("expected nothing configured, got %+v", status)
	}
}

func TestServices_SetEmbeddingService(t *testing.T) {
	s := NewServices(stubFallback{})

	old := &mockEmbeddingService{}
	s.SetEmbeddingService(old)

	status := s.Status()
	if !status.Embedding || status.EmbeddingModel != "test-model" || status.EmbeddingDimensions != 384 {
		t.Errorf("unexpected status %+v", status)
	}

	s.SetEmbeddingService(&mockEmbeddingService{})
	if !old.closed {
		t.Error("expected old service to be closed")
	}

	s.SetEmbeddingService(nil)
	if s.Status().Embedding {
		t.Error("expected embedding to be unconfigured")
	}
	if _, err := s.EmbeddingService().EmbedQuery(context.Background(), "q"); !errors.Is(err, errUnconfigured) {
		t.Errorf("expected fallback after reset, got %v", err)
	}
}

func TestServices_SetTranslator(t *testing.T) {
	s := NewServices(stubFallback{})

	s.SetTranslator(mockTranslator{})
	out, err := s.Translator().Translate(context.Background(), "hi", "en")
	if err != nil || out != "hi" {
		t.Errorf("expected configured translator, got %q, %v", out, err)
	}
	if !s.Status().Translation {
		t.Error("expected translation to be configured")
	}
}

func TestServices_ValidateAndSetEmbedding(t *testing.T) {
	s := NewServices(stubFallback{})
	ctx := context.Background()

	bad := &mockEmbeddingService{healthCheckErr: errors.New("connection refused")}
	if err := s.ValidateAndSetEmbedding(ctx, bad); err == nil {
		t.Fatal("expected health check error")
	}
	if !bad.closed {
		t.Error("expected failed service to be closed")
	}
	if s.Status().Embedding {
		t.Error("failed service must not be installed")
	}

	good := &mockEmbeddingService{}
	if err := s.ValidateAndSetEmbedding(ctx, good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.EmbeddingService() != driven.EmbeddingService(good) {
		t.Error("expected validated service to be installed")
	}
}

func TestServices_Close(t *testing.T) {
	s := NewServices(stubFallback{})
	emb := &mockEmbeddingService{}
	s.SetEmbeddingService(emb)
	s.SetTranslator(mockTranslator{})

	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !emb.closed {
		t.Error("expected embedding service to be closed")
	}
	if s.Status() != (Status{}) {
		t.Errorf("expected empty status after close, got %+v", s.Status())
	}
}
