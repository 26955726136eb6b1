package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*OllamaEmbedding)(nil)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "nomic-embed-text"
)

// Native sizes of common Ollama embedding models
var ollamaModelDimensions = map[string]int{
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"snowflake-arctic-embed": 1024,
	"bge-m3":                 1024,
}

// OllamaEmbedding implements EmbeddingService with Ollama's batch /api/embed endpoint.
type OllamaEmbedding struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
	limiters   *Limiters
}

// OllamaEmbeddingConfig configures an OllamaEmbedding.
type OllamaEmbeddingConfig struct {
	BaseURL string
	Model   string
	// Dimensions is required for models missing from the built-in table
	Dimensions int
	Timeout    time.Duration
	Limiters   *Limiters
}

// NewOllamaEmbedding creates an Ollama embedding service.
func NewOllamaEmbedding(cfg OllamaEmbeddingConfig) (*OllamaEmbedding, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOllamaModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = ollamaModelDimensions[stripModelTag(cfg.Model)]
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions unknown for ollama model %q", cfg.Model)
	}

	return &OllamaEmbedding{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: cfg.Timeout},
		limiters:   cfg.Limiters,
	}, nil
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed implements EmbeddingService.
func (o *OllamaEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := o.limiters.Wait(ctx, LimiterKey{Provider: ProviderOllama, Operation: OperationEmbed}); err != nil {
		return nil, err
	}

	var resp ollamaEmbedResponse
	err := postJSON(ctx, o.client, o.baseURL+"/api/embed", nil,
		ollamaEmbedRequest{Model: o.model, Input: texts}, &resp)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

// EmbedQuery implements EmbeddingService.
func (o *OllamaEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := o.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// Dimensions implements EmbeddingService.
func (o *OllamaEmbedding) Dimensions() int {
	return o.dimensions
}

// Model implements EmbeddingService.
func (o *OllamaEmbedding) Model() string {
	return o.model
}

// HealthCheck checks that Ollama is up and has the model pulled.
func (o *OllamaEmbedding) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := doJSON(o.client, req, &tags); err != nil {
		return fmt.Errorf("ollama not available: %w", err)
	}

	want := stripModelTag(o.model)
	for _, m := range tags.Models {
		if stripModelTag(m.Name) == want {
			return nil
		}
	}
	return fmt.Errorf("model %s not found (run: ollama pull %s)", o.model, o.model)
}

// Close implements EmbeddingService.
func (o *OllamaEmbedding) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

// stripModelTag turns "model:latest" into "model".
func stripModelTag(name string) string {
	base, _, _ := strings.Cut(name, ":")
	return base
}
