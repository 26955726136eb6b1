package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestLock_OwnerID_Unique(t *testing.T) {
	_, client := setupTestRedis(t)

	lock1 := NewLock(client)
	lock2 := NewLock(client)

	assert.NotEmpty(t, lock1.OwnerID())
	assert.NotEqual(t, lock1.OwnerID(), lock2.OwnerID())
}

func TestLock_AcquireExclusive(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	lock1 := NewLock(client)
	lock2 := NewLock(client)

	acquired, err := lock1.Acquire(ctx, "reindex", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = lock2.Acquire(ctx, "reindex", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, acquired)

	// not reentrant
	acquired, err = lock1.Acquire(ctx, "reindex", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, acquired)

	acquired, err = lock2.Acquire(ctx, "maintenance", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, acquired, "different names are independent")
}

func TestLock_ReleaseOnlyByOwner(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	lock1 := NewLock(client)
	lock2 := NewLock(client)

	_, err := lock1.Acquire(ctx, "reindex", 10*time.Second)
	require.NoError(t, err)

	require.NoError(t, lock2.Release(ctx, "reindex"))
	acquired, _ := lock2.Acquire(ctx, "reindex", 10*time.Second)
	assert.False(t, acquired, "lock must survive a release by another owner")

	require.NoError(t, lock1.Release(ctx, "reindex"))
	acquired, _ = lock2.Acquire(ctx, "reindex", 10*time.Second)
	assert.True(t, acquired)

	// releasing a lock that is not held is fine
	assert.NoError(t, lock1.Release(ctx, "never-taken"))
}

func TestLock_Expires(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	lock1 := NewLock(client)
	lock2 := NewLock(client)

	_, err := lock1.Acquire(ctx, "maintenance", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	acquired, err := lock2.Acquire(ctx, "maintenance", time.Second)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestLock_Extend(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	lock1 := NewLock(client)
	lock2 := NewLock(client)

	_, err := lock1.Acquire(ctx, "maintenance", time.Second)
	require.NoError(t, err)

	require.NoError(t, lock1.Extend(ctx, "maintenance", 10*time.Second))
	mr.FastForward(2 * time.Second)
	assert.True(t, mr.Exists(DefaultPrefix+"lock:maintenance"))

	assert.ErrorIs(t, lock2.Extend(ctx, "maintenance", 10*time.Second), domain.ErrNotFound)
	assert.ErrorIs(t, lock1.Extend(ctx, "other", 10*time.Second), domain.ErrNotFound)
}

func TestLock_Ping(t *testing.T) {
	_, client := setupTestRedis(t)
	assert.NoError(t, NewLock(client).Ping(context.Background()))
}
