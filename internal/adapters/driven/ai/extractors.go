package ai

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/normalisers"
)

var (
	_ driven.Extractor = (*OCRExtractor)(nil)
	_ driven.Extractor = (*PlainTextExtractor)(nil)
)

// OCRExtractor sends content to an HTTP OCR service. The service takes a
// multipart upload in the "file" field and answers
// {"text": "...", "language": "de", "partial": false}.
type OCRExtractor struct {
	url      string
	apiKey   string
	client   *http.Client
	limiters *Limiters
}

// OCRConfig configures an OCRExtractor.
type OCRConfig struct {
	URL      string
	APIKey   string
	Timeout  time.Duration
	Limiters *Limiters
}

// NewOCRExtractor creates an OCR client.
func NewOCRExtractor(cfg OCRConfig) (*OCRExtractor, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("OCR service URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &OCRExtractor{
		url:      cfg.URL,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiters: cfg.Limiters,
	}, nil
}

type ocrResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Partial  bool   `json:"partial"`
}

// Extract implements driven.Extractor.
func (o *OCRExtractor) Extract(ctx context.Context, content []byte, mimeType string) (*driven.Extraction, error) {
	if err := o.limiters.Wait(ctx, LimiterKey{Provider: ProviderOCR, Operation: OperationExtract}); err != nil {
		return nil, err
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("mime_type", mimeType); err != nil {
		return nil, err
	}
	part, err := form.CreateFormFile("file", "document")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	var resp ocrResponse
	if err := doJSON(o.client, req, &resp); err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}
	return &driven.Extraction{
		Text:     resp.Text,
		Language: strings.ToLower(resp.Language),
		Partial:  resp.Partial,
	}, nil
}

// PlainTextExtractor decodes text-based uploads without calling out and
// normalises them by format (HTML is reduced to its visible text). The
// language is not detected; the configured default is reported instead.
type PlainTextExtractor struct {
	language string
	registry *normalisers.Registry
}

// NewPlainTextExtractor creates an extractor that reports language for every document.
func NewPlainTextExtractor(language string) *PlainTextExtractor {
	return &PlainTextExtractor{
		language: strings.ToLower(language),
		registry: normalisers.DefaultRegistry(),
	}
}

// Extract implements driven.Extractor. An empty mime type is treated as text/plain.
func (p *PlainTextExtractor) Extract(ctx context.Context, content []byte, mimeType string) (*driven.Extraction, error) {
	if mimeType == "" {
		mimeType = "text/plain"
	}
	n := p.registry.Get(mimeType)
	if n == nil {
		return nil, fmt.Errorf("%w: unsupported mime type %q", domain.ErrInvalidInput, mimeType)
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", domain.ErrInvalidInput)
	}
	return &driven.Extraction{Text: n.Normalise(string(content), mimeType), Language: p.language}, nil
}
