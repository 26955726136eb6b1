package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

func TestIngestion_RequestProcessing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "doc", germanText)

	job, err := env.ingestion.RequestProcessing(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, domain.JobTypeFullProcessing, job.Type)
	assert.Equal(t, domain.DocumentStatusQueued, env.document(t, "doc").Status)

	again, err := env.ingestion.RequestProcessing(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, job.ID, again.ID)

	status, err := env.ingestion.GetJobStatus(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, job.ID, status.ID)
}

func TestIngestion_RequestProcessingUnknownDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ingestion.RequestProcessing(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.ingestion.RequestProcessing(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestion_ConcurrentRequestsShareOneJob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "42", germanText)

	var wg sync.WaitGroup
	ids := make(chan string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := env.ingestion.RequestProcessing(ctx, "42")
			if assert.NoError(t, err) {
				ids <- job.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1)
}

func TestIngestion_CancelPendingJob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "doc", germanText)

	job, err := env.ingestion.RequestProcessing(ctx, "doc")
	require.NoError(t, err)

	cancelled, err := env.ingestion.CancelJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, domain.DocumentStatusUploaded, env.document(t, "doc").Status)

	_, err = env.ingestion.CancelJob(ctx, job.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = env.ingestion.CancelJob(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	claimed, err := env.queue.Claim(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestIngestion_QueueStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "a", germanText)
	env.register(t, "b", germanText)

	_, err := env.process(t, "a")
	require.NoError(t, err)
	_, err = env.ingestion.RequestProcessing(ctx, "b")
	require.NoError(t, err)

	stats, err := env.ingestion.QueueStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Completed)
}

func TestIngestion_ReindexLockHeld(t *testing.T) {
	env := newTestEnv(t)
	env.lock.Hold(driven.LockReindex, time.Minute)

	_, err := env.ingestion.Reindex(context.Background())
	assert.ErrorIs(t, err, domain.ErrReindexInProgress)
}

func TestIngestion_ReindexLockError(t *testing.T) {
	env := newTestEnv(t)
	env.lock.AcquireFn = func(name string) (bool, error) { return false, errors.New("redis down") }

	_, err := env.ingestion.Reindex(context.Background())
	assert.Error(t, err)
}

func TestIngestion_ReindexRequeuesProcessedOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "a", germanText)
	env.register(t, "b", germanText)
	env.register(t, "untouched", germanText)

	_, err := env.process(t, "a")
	require.NoError(t, err)
	_, err = env.process(t, "b")
	require.NoError(t, err)

	report, err := env.ingestion.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Requeued)
	assert.Zero(t, report.Failed)
	assert.False(t, env.lock.IsHeld(driven.LockReindex))
	assert.Equal(t, 1, env.lock.Acquisitions(driven.LockReindex))

	count, err := env.vectors.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.Equal(t, domain.DocumentStatusQueued, env.document(t, "a").Status)
	assert.Equal(t, domain.DocumentStatusUploaded, env.document(t, "untouched").Status)
}

func TestIngestion_ReindexRequeuesDimensionFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "a", germanText)
	env.register(t, "b", germanText)
	env.register(t, "broken", germanText)

	_, err := env.process(t, "a")
	require.NoError(t, err)

	env.embedding.SetEmbedFn(func(texts []string) ([][]float32, error) {
		return nil, errors.New("embedding backend down")
	})
	job, err := env.process(t, "broken")
	require.Error(t, err)
	require.Equal(t, domain.JobStatusFailed, job.Status)
	env.embedding.SetEmbedFn(nil)

	env.embedding.SetDimensions(1024)
	job, err = env.process(t, "b")
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)
	require.Equal(t, domain.JobStatusFailed, job.Status)

	report, err := env.ingestion.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Requeued)
	assert.Zero(t, report.Failed)

	assert.Equal(t, domain.DocumentStatusQueued, env.document(t, "a").Status)
	assert.Equal(t, domain.DocumentStatusQueued, env.document(t, "b").Status)
	assert.Equal(t, domain.DocumentStatusFailed, env.document(t, "broken").Status)
}

func TestIngestion_ReindexExtendsLock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 2*reindexPage+50; i++ {
		id := fmt.Sprintf("doc-%03d", i)
		require.NoError(t, env.documents.Save(ctx, domain.NewDocument(id, "mem://"+id, "text/plain", id)))
		require.NoError(t, env.documents.UpdateStatus(ctx, id, domain.DocumentStatusProcessed))
	}

	report, err := env.ingestion.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2*reindexPage+50, report.Requeued)
	assert.Equal(t, 4, env.lock.Extensions(driven.LockReindex))
	assert.False(t, env.lock.IsHeld(driven.LockReindex))
}
