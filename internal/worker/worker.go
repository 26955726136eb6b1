package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/services"
)

// Processor runs one claimed job to a terminal state.
type Processor interface {
	Process(ctx context.Context, job *domain.Job) error
}

// Worker claims jobs from the job queue and runs them through the pipeline.
type Worker struct {
	queue       driven.JobQueue
	processor   Processor
	maintenance *services.Maintenance
	logger      *slog.Logger

	// Configuration
	concurrency    int
	dequeueTimeout int // seconds

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	Queue          driven.JobQueue
	Processor      Processor
	Maintenance    *services.Maintenance // Optional: started and stopped with the worker
	Logger         *slog.Logger
	Concurrency    int // Number of concurrent job processors
	DequeueTimeout int // Seconds to wait for a job before checking again
}

// NewWorker creates a new job worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	return &Worker{
		queue:          cfg.Queue,
		processor:      cfg.Processor,
		maintenance:    cfg.Maintenance,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	if w.maintenance != nil {
		if err := w.maintenance.Start(ctx); err != nil {
			w.logger.Error("failed to start maintenance", "error", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker. Jobs already claimed run to completion.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	doneCh := w.doneCh
	w.mu.Unlock()

	if w.maintenance != nil {
		w.maintenance.Stop()
	}

	<-doneCh
	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	w.mu.RLock()
	doneCh := w.doneCh
	w.mu.RUnlock()
	if doneCh != nil {
		<-doneCh
	}
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Info("worker goroutine started")

	timeout := time.Duration(w.dequeueTimeout) * time.Second
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info("worker stop signal received")
			return
		default:
		}

		job, err := w.queue.ClaimWithTimeout(ctx, timeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to claim job", "error", err)
			select {
			case <-time.After(time.Second): // Back off on error
			case <-w.stopCh:
			case <-ctx.Done():
			}
			continue
		}

		if job == nil {
			continue
		}

		w.processJob(ctx, job, logger)
	}
}

// processJob runs a claimed job. Shutdown does not interrupt it: the job
// would otherwise sit in processing until the maintenance sweep.
func (w *Worker) processJob(ctx context.Context, job *domain.Job, logger *slog.Logger) {
	logger = logger.With("job_id", job.ID, "document_id", job.DocumentID)

	startTime := time.Now()
	err := w.processor.Process(context.WithoutCancel(ctx), job)
	duration := time.Since(startTime)

	switch {
	case err == nil:
		logger.Info("job completed", "duration", duration)
	case errors.Is(err, domain.ErrJobCancelled):
		logger.Info("job cancelled", "duration", duration)
	default:
		logger.Error("job failed", "duration", duration, "error", err)
	}
}

// Health returns health status of the worker.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	if err := w.queue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
