package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/memory"
	"github.com/custodia-labs/sercha-ingest/internal/chunker"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/runtime"
)

// testEnv wires the services over the in-memory adapters.
type testEnv struct {
	queue     *memory.JobQueue
	documents *memory.DocumentStore
	content   *memory.ContentStore
	vectors   *memory.VectorStore
	lock      *mocks.MockLock

	extractor  *mocks.MockExtractor
	translator *mocks.MockTranslator
	summarizer *mocks.MockSummarizer
	embedding  *mocks.MockEmbeddingService
	caps       *runtime.Services

	docs      driving.DocumentService
	ingestion driving.IngestionService
	search    driving.SearchService
	pipeline  *Pipeline
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, opts ...func(*PipelineConfig)) *testEnv {
	t.Helper()
	logger := discardLogger()

	env := &testEnv{
		queue:      memory.NewJobQueue(),
		documents:  memory.NewDocumentStore(),
		content:    memory.NewContentStore(),
		vectors:    memory.NewVectorStore(),
		lock:       mocks.NewMockLock(),
		extractor:  &mocks.MockExtractor{Language: "de"},
		translator: &mocks.MockTranslator{},
		summarizer: &mocks.MockSummarizer{},
		embedding:  mocks.NewMockEmbeddingService(),
		caps:       runtime.NewServices(ai.Unconfigured{}),
	}
	env.caps.SetExtractor(env.extractor)
	env.caps.SetTranslator(env.translator)
	env.caps.SetSummarizer(env.summarizer)
	env.caps.SetEmbeddingService(env.embedding)

	ch, err := chunker.New(chunker.Config{MaxSize: 60, Overlap: 10, PreserveSentences: true, PreserveParagraphs: true})
	require.NoError(t, err)

	cfg := PipelineConfig{
		Queue:            env.queue,
		Documents:        env.documents,
		Content:          env.content,
		Vectors:          env.vectors,
		Capabilities:     env.caps,
		Chunker:          ch,
		Logger:           logger,
		TargetLanguage:   "en",
		SummaryMaxLength: 40,
		EmbedBatchSize:   4,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	env.pipeline = NewPipeline(cfg)
	env.docs = NewDocumentService(env.documents, env.content, env.vectors, env.queue, logger)
	env.ingestion = NewIngestionService(IngestionConfig{
		Queue:     env.queue,
		Documents: env.documents,
		Vectors:   env.vectors,
		Lock:      env.lock,
		Logger:    logger,
	})
	env.search = NewRetrievalService(env.vectors, env.documents, env.caps, logger)
	return env
}

func (e *testEnv) register(t *testing.T, id, text string) *domain.Document {
	t.Helper()
	doc, err := e.docs.Register(context.Background(), driving.RegisterDocumentRequest{
		ID:       id,
		Title:    "Document " + id,
		MimeType: "text/plain",
		Content:  []byte(text),
	})
	require.NoError(t, err)
	return doc
}

// process requests processing of id and runs the claimed job.
func (e *testEnv) process(t *testing.T, id string) (*domain.Job, error) {
	t.Helper()
	ctx := context.Background()

	_, err := e.ingestion.RequestProcessing(ctx, id)
	require.NoError(t, err)

	job, err := e.queue.Claim(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, id, job.DocumentID)

	procErr := e.pipeline.Process(ctx, job)

	latest, err := e.queue.Get(ctx, job.ID)
	require.NoError(t, err)
	return latest, procErr
}

func (e *testEnv) document(t *testing.T, id string) *domain.Document {
	t.Helper()
	doc, err := e.documents.Get(context.Background(), id)
	require.NoError(t, err)
	return doc
}
