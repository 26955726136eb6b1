package domain

import (
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Chunk is a bounded text segment of a document together with its embedding.
// Chunks are never mutated in place; a document's chunk set is replaced whole.
type Chunk struct {
	DocumentID string    `json:"document_id"`
	Index      int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`

	// ContentHash is the hex blake2b-256 digest of Content
	ContentHash string `json:"content_hash"`

	// StartOffset and EndOffset are rune offsets into the indexed text
	StartOffset int `json:"start_offset"`
	EndOffset   int `json:"end_offset"`

	// IndexedAt is the processing time of the generation this chunk belongs to
	IndexedAt time.Time `json:"indexed_at"`
}

// HashContent returns the content hash used to detect unchanged chunks.
func HashContent(content string) string {
	sum := blake2b.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Dimension returns the embedding length.
func (c *Chunk) Dimension() int {
	return len(c.Embedding)
}

// BatchDimension returns the embedding length shared by every chunk, or 0
// for an empty batch. A batch mixing lengths is an ErrDimensionMismatch.
func BatchDimension(chunks []*Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	dim := len(chunks[0].Embedding)
	if dim == 0 {
		return 0, fmt.Errorf("%w: chunk 0 has no embedding", ErrInvalidInput)
	}
	for i, c := range chunks[1:] {
		if len(c.Embedding) != dim {
			return 0, fmt.Errorf("%w: chunk %d has %d, chunk 0 has %d",
				ErrDimensionMismatch, i+1, len(c.Embedding), dim)
		}
	}
	return dim, nil
}
