// Package normalisers converts text-based uploads (plain text, Markdown,
// HTML, JSON) into clean text for the plain text extractor.
package normalisers

import (
	"mime"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Registry selects a normaliser by MIME type. When multiple normalisers
// match, the highest priority one is used.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a normaliser.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.normalisers = append(r.normalisers, n)
	slices.SortStableFunc(r.normalisers, func(a, b driven.Normaliser) int {
		return b.Priority() - a.Priority()
	})
}

// Get returns the best-matching normaliser for mimeType, or nil.
func (r *Registry) Get(mimeType string) driven.Normaliser {
	mediaType := baseType(mimeType)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, n := range r.normalisers {
		if matches(n.SupportedTypes(), mediaType) {
			return n
		}
	}
	return nil
}

// Types returns every registered MIME type pattern, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var types []string
	for _, n := range r.normalisers {
		types = append(types, n.SupportedTypes()...)
	}
	slices.Sort(types)
	return slices.Compact(types)
}

// baseType strips parameters such as charset and lowercases the type.
func baseType(mimeType string) string {
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mediaType
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// matches supports exact types and "type/*" wildcards.
func matches(supported []string, mediaType string) bool {
	for _, s := range supported {
		if s == mediaType {
			return true
		}
		if prefix, ok := strings.CutSuffix(s, "*"); ok && strings.HasSuffix(prefix, "/") && strings.HasPrefix(mediaType, prefix) {
			return true
		}
	}
	return false
}

// DefaultRegistry creates a registry with the built-in normalisers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(PlaintextNormaliser{})
	r.Register(MarkdownNormaliser{})
	r.Register(HTMLNormaliser{})
	return r
}

// PlaintextNormaliser handles text/* and JSON. It is the fallback.
type PlaintextNormaliser struct{}

func (PlaintextNormaliser) Normalise(content, _ string) string {
	return cleanWhitespace(content)
}

func (PlaintextNormaliser) SupportedTypes() []string {
	return []string{"text/plain", "text/*", "application/json"}
}

func (PlaintextNormaliser) Priority() int { return 1 }

// MarkdownNormaliser keeps Markdown as written; headings and lists carry
// meaning for the summarizer.
type MarkdownNormaliser struct{}

func (MarkdownNormaliser) Normalise(content, _ string) string {
	return cleanWhitespace(content)
}

func (MarkdownNormaliser) SupportedTypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

func (MarkdownNormaliser) Priority() int { return 50 }

// cleanWhitespace unifies line endings, trims trailing spaces and keeps at
// most one blank line between paragraphs.
func cleanWhitespace(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = strings.Join(lines, "\n")

	for strings.Contains(content, "\n\n\n") {
		content = strings.ReplaceAll(content, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(content)
}
