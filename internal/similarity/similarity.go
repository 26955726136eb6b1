// Package similarity ranks chunk embeddings against a query vector.
package similarity

import (
	"container/heap"
	"math"
	"sort"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b, or 0 when either has
// zero magnitude. Callers check that the lengths match.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Better reports whether a ranks ahead of b: higher score first, then the
// more recently indexed chunk, then document id and chunk index.
func Better(a, b *domain.ScoredChunk) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.Chunk.IndexedAt.Equal(b.Chunk.IndexedAt) {
		return a.Chunk.IndexedAt.After(b.Chunk.IndexedAt)
	}
	if a.Chunk.DocumentID != b.Chunk.DocumentID {
		return a.Chunk.DocumentID < b.Chunk.DocumentID
	}
	return a.Chunk.Index < b.Chunk.Index
}

// TopK keeps the k best chunks seen so far.
type TopK struct {
	k int
	h worstFirst
}

// NewTopK creates a collector for the k best results. It keeps nothing
// when k <= 0.
func NewTopK(k int) *TopK {
	if k <= 0 {
		return &TopK{}
	}
	return &TopK{k: k, h: make(worstFirst, 0, min(k, domain.MaxSearchLimit))}
}

// Offer scores chunk against query and keeps it if it ranks in the top k.
func (t *TopK) Offer(query []float32, chunk *domain.Chunk) {
	t.Push(&domain.ScoredChunk{Chunk: chunk, Score: Cosine(query, chunk.Embedding)})
}

// Push adds an already scored chunk.
func (t *TopK) Push(sc *domain.ScoredChunk) {
	if t.k <= 0 {
		return
	}
	if len(t.h) < t.k {
		heap.Push(&t.h, sc)
		return
	}
	if Better(sc, t.h[0]) {
		t.h[0] = sc
		heap.Fix(&t.h, 0)
	}
}

// Results returns the kept chunks best first.
func (t *TopK) Results() []*domain.ScoredChunk {
	out := make([]*domain.ScoredChunk, len(t.h))
	copy(out, t.h)
	sort.Slice(out, func(i, j int) bool { return Better(out[i], out[j]) })
	return out
}

// worstFirst is a min-heap on rank: the root is the weakest kept result.
type worstFirst []*domain.ScoredChunk

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return Better(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) { *h = append(*h, x.(*domain.ScoredChunk)) }

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
