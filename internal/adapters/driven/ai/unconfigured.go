package ai

import (
	"context"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

var (
	_ driven.Extractor        = Unconfigured{}
	_ driven.Translator       = Unconfigured{}
	_ driven.Summarizer       = Unconfigured{}
	_ driven.EmbeddingService = Unconfigured{}
)

// Unconfigured stands in for any capability without a provider. Every call
// returns domain.ErrUnconfigured.
type Unconfigured struct{}

func (Unconfigured) Extract(context.Context, []byte, string) (*driven.Extraction, error) {
	return nil, domain.ErrUnconfigured
}

func (Unconfigured) Translate(context.Context, string, string) (string, error) {
	return "", domain.ErrUnconfigured
}

func (Unconfigured) Summarize(context.Context, string, int) (string, error) {
	return "", domain.ErrUnconfigured
}

func (Unconfigured) Embed(context.Context, []string) ([][]float32, error) {
	return nil, domain.ErrUnconfigured
}

func (Unconfigured) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, domain.ErrUnconfigured
}

func (Unconfigured) Dimensions() int { return 0 }

func (Unconfigured) Model() string { return "" }

func (Unconfigured) HealthCheck(context.Context) error { return domain.ErrUnconfigured }

func (Unconfigured) Close() error { return nil }
