package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure OpenAIEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*OpenAIEmbedding)(nil)

const (
	defaultOpenAIBaseURL        = "https://api.openai.com/v1"
	defaultOpenAIEmbeddingModel = "text-embedding-3-small"
)

// OpenAIEmbedding implements EmbeddingService using OpenAI's embedding API
// or any server speaking the same protocol.
type OpenAIEmbedding struct {
	apiKey     string
	model      string
	baseURL    string
	dimensions int
	// requestDimensions is sent when the caller asked for a shortened vector
	requestDimensions int
	client            *http.Client
	limiters          *Limiters
}

// Model dimensions for OpenAI embedding models
var openAIModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbeddingConfig configures an OpenAIEmbedding.
type OpenAIEmbeddingConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	// Dimensions overrides the model's native size. The text-embedding-3
	// models shorten their output to it.
	Dimensions int
	Timeout    time.Duration
	Limiters   *Limiters
}

// NewOpenAIEmbedding creates a new OpenAI embedding service
func NewOpenAIEmbedding(cfg OpenAIEmbeddingConfig) (*OpenAIEmbedding, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIEmbeddingModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		var ok bool
		dimensions, ok = openAIModelDimensions[cfg.Model]
		if !ok {
			// Default to 1536 for unknown models
			dimensions = 1536
		}
	}

	return &OpenAIEmbedding{
		apiKey:            cfg.APIKey,
		model:             cfg.Model,
		baseURL:           cfg.BaseURL,
		dimensions:        dimensions,
		requestDimensions: cfg.Dimensions,
		client:            &http.Client{Timeout: cfg.Timeout},
		limiters:          cfg.Limiters,
	}, nil
}

// embeddingRequest is the request body for OpenAI embedding API
type embeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
	Dimensions     int      `json:"dimensions,omitempty"`
}

// embeddingResponse is the response from OpenAI embedding API
type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed generates embeddings for multiple texts
func (e *OpenAIEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := e.limiters.Wait(ctx, LimiterKey{Provider: ProviderOpenAI, Operation: OperationEmbed}); err != nil {
		return nil, err
	}

	reqBody := embeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: "float",
		Dimensions:     e.requestDimensions,
	}

	var resp embeddingResponse
	err := postJSON(ctx, e.client, e.baseURL+"/embeddings",
		map[string]string{"Authorization": "Bearer " + e.apiKey}, reqBody, &resp)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	// Sort by index to ensure order matches input
	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(embeddings) {
			embeddings[d.Index] = d.Embedding
		}
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, fmt.Errorf("openai embeddings: no embedding returned for input %d", i)
		}
	}

	return embeddings, nil
}

// EmbedQuery generates an embedding for a search query
func (e *OpenAIEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// Dimensions returns the embedding dimension size
func (e *OpenAIEmbedding) Dimensions() int {
	return e.dimensions
}

// Model returns the model name being used
func (e *OpenAIEmbedding) Model() string {
	return e.model
}

// HealthCheck verifies the embedding service is available
func (e *OpenAIEmbedding) HealthCheck(ctx context.Context) error {
	// Make a small embedding request to verify connectivity
	_, err := e.EmbedQuery(ctx, "health check")
	return err
}

// Close releases resources held by the embedding service
func (e *OpenAIEmbedding) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
