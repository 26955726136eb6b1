package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// StaleJobMessage is recorded on jobs failed by the maintenance sweep.
const StaleJobMessage = "abandoned by worker"

// Maintenance periodically fails processing jobs whose worker went away
// (started longer ago than StaleAfter) and marks their documents failed.
//
// For multi-instance deployments, configure a DistributedLock so that one
// instance sweeps per cycle.
type Maintenance struct {
	queue     driven.JobQueue
	documents driven.DocumentStore
	lock      driven.DistributedLock
	logger    *slog.Logger

	// Internal state
	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration

	staleAfter   time.Duration
	lockTTL      time.Duration
	lockRequired bool
	now          func() time.Time
}

// MaintenanceConfig holds configuration for the maintenance loop.
type MaintenanceConfig struct {
	Queue        driven.JobQueue
	Documents    driven.DocumentStore
	Lock         driven.DistributedLock // Optional: distributed lock for multi-instance coordination
	Logger       *slog.Logger
	Interval     time.Duration // How often to sweep (default: 1m)
	StaleAfter   time.Duration // Processing time after which a job counts as abandoned (default: 30m)
	LockTTL      time.Duration // TTL for the distributed lock (default: 2x interval)
	LockRequired bool          // If true, skip the sweep when the lock backend errors
}

// NewMaintenance creates a maintenance loop.
func NewMaintenance(cfg MaintenanceConfig) *Maintenance {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = time.Minute
	}

	staleAfter := cfg.StaleAfter
	if staleAfter == 0 {
		staleAfter = 30 * time.Minute
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 2 * interval
	}

	return &Maintenance{
		queue:        cfg.Queue,
		documents:    cfg.Documents,
		lock:         cfg.Lock,
		logger:       logger,
		interval:     interval,
		staleAfter:   staleAfter,
		lockTTL:      lockTTL,
		lockRequired: cfg.LockRequired,
		now:          time.Now,
	}
}

// Start begins the maintenance loop.
// It runs until Stop is called or context is cancelled.
func (m *Maintenance) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	m.logger.Info("maintenance starting", "interval", m.interval, "stale_after", m.staleAfter)

	go m.run(ctx)

	return nil
}

// Stop gracefully stops the loop.
func (m *Maintenance) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	close(m.stopCh)
	m.mu.Unlock()

	// Wait for the loop to finish
	<-m.doneCh

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()

	m.logger.Info("maintenance stopped")
}

func (m *Maintenance) run(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Run immediately on start
	m.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("maintenance context cancelled")
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep fails stale processing jobs once and returns how many it failed.
// If a distributed lock is configured, it is held for the sweep.
func (m *Maintenance) Sweep(ctx context.Context) int {
	if m.lock != nil {
		acquired, err := m.lock.Acquire(ctx, driven.LockMaintenance, m.lockTTL)
		if err != nil {
			m.logger.Warn("failed to acquire maintenance lock", "error", err)
			if m.lockRequired {
				return 0 // Skip this cycle
			}
			// Fall through if lock not required (single-instance mode)
		} else if !acquired {
			m.logger.Debug("maintenance lock held by another instance, skipping cycle")
			return 0
		} else {
			defer func() {
				if err := m.lock.Release(ctx, driven.LockMaintenance); err != nil {
					m.logger.Warn("failed to release maintenance lock", "error", err)
				}
			}()
		}
	}

	cutoff := m.now().Add(-m.staleAfter)
	failed, err := m.queue.FailStale(ctx, cutoff, StaleJobMessage)
	if err != nil {
		m.logger.Error("failed to sweep stale jobs", "error", err)
	}

	jobs := NewJobLifecycle(m.queue, m.documents, m.logger)
	for _, job := range failed {
		m.logger.Warn("failed abandoned job", "job_id", job.ID, "document_id", job.DocumentID, "started_at", job.StartedAt)
		if err := jobs.Failed(ctx, job); err != nil {
			m.logger.Warn("failed to reset document of abandoned job", "job_id", job.ID, "error", err)
		}
	}
	return len(failed)
}
