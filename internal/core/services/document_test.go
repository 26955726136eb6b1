package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
)

func TestDocumentService_Register(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc := env.register(t, "doc-1", "hello")
	assert.Equal(t, domain.DocumentStatusUploaded, doc.Status)
	assert.NotEmpty(t, doc.ContentRef)

	raw, err := env.content.Get(ctx, doc.ContentRef)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(raw))

	_, err = env.docs.Register(ctx, driving.RegisterDocumentRequest{ID: "doc-1", Content: []byte("again")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.docs.Register(ctx, driving.RegisterDocumentRequest{ID: "empty"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	generated, err := env.docs.Register(ctx, driving.RegisterDocumentRequest{Content: []byte("x")})
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID)
}

func TestDocumentService_List(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "a", germanText)
	env.register(t, "b", germanText)
	_, err := env.process(t, "a")
	require.NoError(t, err)

	all, err := env.docs.List(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	processed, err := env.docs.List(ctx, domain.DocumentStatusProcessed, 10, 0)
	require.NoError(t, err)
	require.Len(t, processed, 1)
	assert.Equal(t, "a", processed[0].ID)

	_, err = env.docs.List(ctx, "archived", 10, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doc := env.register(t, "a", germanText)
	_, err := env.process(t, "a")
	require.NoError(t, err)

	// an active job is cancelled with the document
	job, err := env.ingestion.RequestProcessing(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, env.docs.Delete(ctx, "a"))

	_, err = env.documents.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.content.Get(ctx, doc.ContentRef)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := env.vectors.GetByDocument(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	got, err := env.queue.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, got.Status)

	assert.ErrorIs(t, env.docs.Delete(ctx, "a"), domain.ErrNotFound)
}
