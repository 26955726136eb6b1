package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// Lock is a process-local lock with TTL semantics, for single-instance runs.
type Lock struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewLock creates a process-local lock.
func NewLock() *Lock {
	return &Lock{expires: make(map[string]time.Time), now: time.Now}
}

// Acquire implements driven.DistributedLock.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if exp, ok := l.expires[name]; ok && now.Before(exp) {
		return false, nil
	}
	l.expires[name] = now.Add(ttl)
	return true, nil
}

// Release implements driven.DistributedLock.
func (l *Lock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.expires, name)
	return nil
}

// Extend implements driven.DistributedLock.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if exp, ok := l.expires[name]; !ok || !now.Before(exp) {
		return domain.ErrNotFound
	}
	l.expires[name] = now.Add(ttl)
	return nil
}

// Ping implements driven.DistributedLock.
func (l *Lock) Ping(ctx context.Context) error {
	return nil
}
