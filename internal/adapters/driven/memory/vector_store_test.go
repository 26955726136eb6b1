package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func vec(dim int, v float32) []float32 {
	out := make([]float32, dim)
	for i := range out {
		out[i] = v
	}
	return out
}

func chunksOf(dim, n int, tag string) []*domain.Chunk {
	out := make([]*domain.Chunk, n)
	for i := range out {
		out[i] = &domain.Chunk{Index: i, Content: fmt.Sprintf("%s-%d", tag, i), Embedding: vec(dim, float32(i+1))}
	}
	return out
}

func TestVectorStore_DimensionInvariant(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore()

	require.NoError(t, s.ReplaceChunks(ctx, "doc-1", chunksOf(384, 2, "a")))
	dim, _ := s.Dimension(ctx)
	assert.Equal(t, 384, dim)

	err := s.ReplaceChunks(ctx, "doc-2", chunksOf(1024, 1, "b"))
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	dim, _ = s.Dimension(ctx)
	assert.Equal(t, 384, dim)

	_, err = s.Search(ctx, vec(1024, 1), 5)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	require.NoError(t, s.Reindex(ctx))
	n, _ := s.Count(ctx)
	assert.Zero(t, n)
	dim, _ = s.Dimension(ctx)
	assert.Zero(t, dim)

	require.NoError(t, s.ReplaceChunks(ctx, "doc-2", chunksOf(1024, 1, "b")))
	dim, _ = s.Dimension(ctx)
	assert.Equal(t, 1024, dim)
	old, _ := s.GetByDocument(ctx, "doc-1")
	assert.Empty(t, old)
}

func TestVectorStore_RejectsMixedBatch(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore()

	batch := []*domain.Chunk{
		{Index: 0, Embedding: vec(3, 1)},
		{Index: 1, Embedding: vec(4, 1)},
	}
	assert.ErrorIs(t, s.ReplaceChunks(ctx, "doc-1", batch), domain.ErrDimensionMismatch)
	dim, _ := s.Dimension(ctx)
	assert.Zero(t, dim)
}

func TestVectorStore_ReplaceSwapsWholeSet(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore()

	require.NoError(t, s.ReplaceChunks(ctx, "doc-1", chunksOf(3, 4, "old")))
	require.NoError(t, s.ReplaceChunks(ctx, "doc-1", chunksOf(3, 2, "new")))

	got, err := s.GetByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new-0", got[0].Content)
	assert.Equal(t, "doc-1", got[0].DocumentID)

	require.NoError(t, s.DeleteByDocument(ctx, "doc-1"))
	n, _ := s.Count(ctx)
	assert.Zero(t, n)
}

func TestVectorStore_SearchEmpty(t *testing.T) {
	results, err := NewVectorStore().Search(context.Background(), vec(3, 1), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorStore_SearchNonPositiveK(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore()
	require.NoError(t, s.ReplaceChunks(ctx, "doc-1", chunksOf(3, 2, "a")))

	for _, k := range []int{0, -1} {
		results, err := s.Search(ctx, vec(3, 1), k)
		require.NoError(t, err)
		assert.Empty(t, results, "k=%d", k)
	}
}

func TestVectorStore_SearchRanksByCosine(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore()
	at := time.Now()

	require.NoError(t, s.ReplaceChunks(ctx, "doc-1", []*domain.Chunk{
		{Index: 0, Content: "east", Embedding: []float32{1, 0}, IndexedAt: at},
		{Index: 1, Content: "north", Embedding: []float32{0, 1}, IndexedAt: at},
	}))

	results, err := s.Search(ctx, []float32{0.9, 0.1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "east", results[0].Chunk.Content)
	assert.Equal(t, "doc-1", results[0].Chunk.DocumentID)
}

func TestVectorStore_NoMixedGeneration(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore()

	gen := func(tag string) []*domain.Chunk {
		out := make([]*domain.Chunk, 8)
		for i := range out {
			out[i] = &domain.Chunk{Index: i, Content: tag, Embedding: []float32{1, float32(i)}}
		}
		return out
	}
	require.NoError(t, s.ReplaceChunks(ctx, "doc-1", gen("A")))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			tag := "A"
			if i%2 == 0 {
				tag = "B"
			}
			assert.NoError(t, s.ReplaceChunks(ctx, "doc-1", gen(tag)))
		}
		close(stop)
	}()

	for {
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
		results, err := s.Search(ctx, []float32{1, 1}, 8)
		require.NoError(t, err)
		require.Len(t, results, 8)
		tags := map[string]bool{}
		for _, r := range results {
			tags[r.Chunk.Content] = true
		}
		require.Len(t, tags, 1, "search saw a mixed generation")
	}
}
