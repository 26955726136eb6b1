package driven

import (
	"context"
	"time"
)

// Lock names used across instances
const (
	LockMaintenance = "maintenance"
	LockReindex     = "reindex"
)

// DistributedLock coordinates singleton work (maintenance sweeps, reindex)
// across instances.
type DistributedLock interface {
	// Acquire tries to take the named lock for ttl.
	// acquired is false when another instance holds it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives the lock up. Releasing a lock that is not held is not an error.
	Release(ctx context.Context, name string) error

	// Extend pushes the expiry of a held lock out to ttl.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
