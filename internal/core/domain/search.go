package domain

import "time"

const (
	// DefaultSearchLimit is used when a search asks for k <= 0
	DefaultSearchLimit = 10
	// MaxSearchLimit caps k
	MaxSearchLimit = 100
)

// ScoredChunk is a vector store hit
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

// SearchResult represents the result of a semantic search
type SearchResult struct {
	Query   string         `json:"query"`
	Results []*RankedChunk `json:"results"`
	Took    time.Duration  `json:"took" swaggertype:"integer" example:"1500000"`
}

// RankedChunk represents a search result with relevance score
type RankedChunk struct {
	Chunk      *Chunk    `json:"chunk"`
	DocumentID string    `json:"document_id"`
	Document   *Document `json:"document,omitempty"`
	Score      float64   `json:"score"`
}

// NormalizeLimit applies the default and maximum to a requested k.
func NormalizeLimit(k int) int {
	if k <= 0 {
		return DefaultSearchLimit
	}
	if k > MaxSearchLimit {
		return MaxSearchLimit
	}
	return k
}
