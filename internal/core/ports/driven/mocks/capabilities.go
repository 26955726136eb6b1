package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// MockExtractor returns Text and Language unless ExtractFn is set.
type MockExtractor struct {
	Text      string
	Language  string
	Partial   bool
	ExtractFn func(ctx context.Context, content []byte, mimeType string) (*driven.Extraction, error)

	mu    sync.Mutex
	calls int
}

func (m *MockExtractor) Extract(ctx context.Context, content []byte, mimeType string) (*driven.Extraction, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.ExtractFn != nil {
		return m.ExtractFn(ctx, content, mimeType)
	}
	text := m.Text
	if text == "" {
		text = string(content)
	}
	return &driven.Extraction{Text: text, Language: m.Language, Partial: m.Partial}, nil
}

// Calls returns the number of Extract calls.
func (m *MockExtractor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockTranslator prefixes text with the target language unless TranslateFn is set.
type MockTranslator struct {
	TranslateFn func(ctx context.Context, text, target string) (string, error)

	mu    sync.Mutex
	calls int
}

func (m *MockTranslator) Translate(ctx context.Context, text, target string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.TranslateFn != nil {
		return m.TranslateFn(ctx, text, target)
	}
	return "[" + target + "] " + text, nil
}

// Calls returns the number of Translate calls.
func (m *MockTranslator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockSummarizer returns the first maxLen runes unless SummarizeFn is set.
type MockSummarizer struct {
	SummarizeFn func(ctx context.Context, text string, maxLen int) (string, error)
}

func (m *MockSummarizer) Summarize(ctx context.Context, text string, maxLen int) (string, error) {
	if m.SummarizeFn != nil {
		return m.SummarizeFn(ctx, text, maxLen)
	}
	runes := []rune(text)
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}
	return string(runes), nil
}
