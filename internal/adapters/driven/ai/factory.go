package ai

import (
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Providers
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderOCR       = "ocr"
	ProviderPlainText = "plaintext"
)

// Operations, the second half of a LimiterKey
const (
	OperationExtract   = "extract"
	OperationTranslate = "translate"
	OperationSummarize = "summarize"
	OperationEmbed     = "embed"
)

// ExtractionSettings selects the extractor. An empty provider means unconfigured.
type ExtractionSettings struct {
	Provider        string
	URL             string
	APIKey          string
	DefaultLanguage string
}

// TextSettings selects the translator and summarizer.
type TextSettings struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// EmbeddingSettings selects the embedding model.
type EmbeddingSettings struct {
	Provider   string
	APIKey     string
	Model      string
	BaseURL    string
	Dimensions int
}

// Factory creates capability adapters from settings. Adapters created by
// one factory share its rate limiters.
type Factory struct {
	limiters *Limiters
	timeout  time.Duration
}

// NewFactory creates a new factory. limiters may be nil; timeout bounds
// each HTTP request and defaults per adapter when zero.
func NewFactory(limiters *Limiters, timeout time.Duration) *Factory {
	return &Factory{limiters: limiters, timeout: timeout}
}

// CreateExtractor creates the extractor for settings.
func (f *Factory) CreateExtractor(settings ExtractionSettings) (driven.Extractor, error) {
	switch settings.Provider {
	case "":
		return Unconfigured{}, nil
	case ProviderOCR:
		return NewOCRExtractor(OCRConfig{
			URL:      settings.URL,
			APIKey:   settings.APIKey,
			Timeout:  f.timeout,
			Limiters: f.limiters,
		})
	case ProviderPlainText:
		return NewPlainTextExtractor(settings.DefaultLanguage), nil
	default:
		return nil, fmt.Errorf("%w: unknown extraction provider %q", domain.ErrInvalidInput, settings.Provider)
	}
}

// CreateTextServices creates the translator and summarizer for settings.
// Both share one client.
func (f *Factory) CreateTextServices(settings TextSettings) (driven.Translator, driven.Summarizer, error) {
	switch settings.Provider {
	case "":
		return Unconfigured{}, Unconfigured{}, nil
	case ProviderOpenAI:
		text, err := NewOpenAIText(OpenAITextConfig{
			APIKey:   settings.APIKey,
			Model:    settings.Model,
			BaseURL:  settings.BaseURL,
			Timeout:  f.timeout,
			Limiters: f.limiters,
		})
		if err != nil {
			return nil, nil, err
		}
		return text, text, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown text provider %q", domain.ErrInvalidInput, settings.Provider)
	}
}

// CreateEmbeddingService creates an embedding service from settings
func (f *Factory) CreateEmbeddingService(settings EmbeddingSettings) (driven.EmbeddingService, error) {
	switch settings.Provider {
	case "":
		return Unconfigured{}, nil
	case ProviderOpenAI:
		return NewOpenAIEmbedding(OpenAIEmbeddingConfig{
			APIKey:     settings.APIKey,
			Model:      settings.Model,
			BaseURL:    settings.BaseURL,
			Dimensions: settings.Dimensions,
			Timeout:    f.timeout,
			Limiters:   f.limiters,
		})
	case ProviderOllama:
		return NewOllamaEmbedding(OllamaEmbeddingConfig{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
			Timeout:    f.timeout,
			Limiters:   f.limiters,
		})
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, settings.Provider)
	}
}
