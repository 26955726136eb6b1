package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/memory"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/sercha-ingest/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-ingest/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-ingest/internal/chunker"
	"github.com/custodia-labs/sercha-ingest/internal/config"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/core/services"
	"github.com/custodia-labs/sercha-ingest/internal/runtime"
	"github.com/custodia-labs/sercha-ingest/internal/worker"
)

// app holds every component of one process. All of them are built here and
// injected; nothing is global.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db    *postgres.DB
	redis goredis.UniversalClient

	queue        driven.JobQueue
	documents    driven.DocumentStore
	content      driven.ContentStore
	vectors      driven.VectorStore
	lock         driven.DistributedLock
	capabilities *runtime.Services

	docs      driving.DocumentService
	ingestion driving.IngestionService
	search    driving.SearchService
	pipeline  *services.Pipeline
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// newApp connects the configured backends and wires the services.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if err := a.connect(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.buildCapabilities(ctx); err != nil {
		a.Close()
		return nil, err
	}

	ch, err := chunker.New(chunker.Config{
		MaxSize:            cfg.Chunker.Size,
		Overlap:            cfg.Chunker.Overlap,
		PreserveSentences:  true,
		PreserveParagraphs: true,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("chunker: %w", err)
	}

	a.docs = services.NewDocumentService(a.documents, a.content, a.vectors, a.queue, logger)
	a.ingestion = services.NewIngestionService(services.IngestionConfig{
		Queue:     a.queue,
		Documents: a.documents,
		Vectors:   a.vectors,
		Lock:      a.lock,
		Logger:    logger,
	})
	a.search = services.NewRetrievalService(a.vectors, a.documents, a.capabilities, logger)
	a.pipeline = services.NewPipeline(services.PipelineConfig{
		Queue:            a.queue,
		Documents:        a.documents,
		Content:          a.content,
		Vectors:          a.vectors,
		Capabilities:     a.capabilities,
		Chunker:          ch,
		Logger:           logger,
		TargetLanguage:   cfg.Pipeline.TargetLanguage,
		SummaryMaxLength: cfg.Pipeline.SummaryMaxLength,
		EmbedBatchSize:   cfg.Pipeline.EmbedBatchSize,
		Timeouts: services.StageTimeouts{
			Extraction:    cfg.Pipeline.ExtractionTimeout,
			Translation:   cfg.Pipeline.TranslationTimeout,
			Summarization: cfg.Pipeline.SummarizationTimeout,
			Embedding:     cfg.Pipeline.EmbeddingTimeout,
		},
	})

	return a, nil
}

func (a *app) connect(ctx context.Context) error {
	cfg := a.cfg

	if cfg.Database.URL != "" {
		a.logger.Info("connecting to postgres")
		db, err := postgres.Connect(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		})
		if err != nil {
			return err
		}
		a.db = db
		if err := db.InitSchema(ctx); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	if cfg.RedisURL != "" {
		a.logger.Info("connecting to redis")
		client, err := redisadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		a.redis = client
	}

	switch cfg.Store {
	case config.BackendPostgres:
		a.documents = postgres.NewDocumentStore(a.db)
		a.content = postgres.NewContentStore(a.db)
		a.vectors = postgres.NewVectorStore(a.db)
	default:
		a.documents = memory.NewDocumentStore()
		a.content = memory.NewContentStore()
		a.vectors = memory.NewVectorStore()
	}

	switch cfg.Queue {
	case config.BackendRedis:
		a.queue = redisadapter.NewJobQueue(a.redis)
	case config.BackendPostgres:
		a.queue = postgres.NewJobQueue(a.db)
	default:
		a.queue = memory.NewJobQueue()
	}

	// Distributed lock: Redis if available, otherwise PostgreSQL advisory locks
	switch {
	case a.redis != nil:
		a.lock = redisadapter.NewLock(a.redis)
	case a.db != nil:
		a.lock = postgres.NewAdvisoryLock(a.db)
	default:
		a.lock = memory.NewLock()
	}

	a.logger.Info("backends ready", "store", cfg.Store, "queue", cfg.Queue)
	return nil
}

// buildCapabilities creates the configured AI adapters. Slots without a
// provider keep the fallback. An embedding provider that fails its health
// check is left unconfigured rather than failing startup.
func (a *app) buildCapabilities(ctx context.Context) error {
	cfg := a.cfg.AI
	factory := ai.NewFactory(ai.NewLimiters(cfg.RateLimit, cfg.Burst), cfg.Timeout)
	a.capabilities = runtime.NewServices(ai.Unconfigured{})

	if cfg.ExtractionProvider != "" {
		if err := a.buildExtractor(factory); err != nil {
			return err
		}
	}
	if cfg.TextProvider != "" {
		if err := a.buildTextServices(factory); err != nil {
			return err
		}
	}
	if cfg.EmbeddingProvider != "" {
		if err := a.buildEmbedding(ctx, factory); err != nil {
			return err
		}
	}

	status := a.capabilities.Status()
	a.logger.Info("capabilities",
		"extraction", status.Extraction,
		"translation", status.Translation,
		"summarization", status.Summarization,
		"embedding", status.Embedding,
		"embedding_model", status.EmbeddingModel,
		"embedding_dimensions", status.EmbeddingDimensions,
	)
	return nil
}

func (a *app) buildExtractor(factory *ai.Factory) error {
	cfg := a.cfg.AI
	extractor, err := factory.CreateExtractor(ai.ExtractionSettings{
		Provider:        cfg.ExtractionProvider,
		URL:             cfg.ExtractionURL,
		APIKey:          cfg.ExtractionAPIKey,
		DefaultLanguage: cfg.DefaultLanguage,
	})
	if err != nil {
		return fmt.Errorf("extraction provider: %w", err)
	}
	a.capabilities.SetExtractor(extractor)
	return nil
}

func (a *app) buildTextServices(factory *ai.Factory) error {
	cfg := a.cfg.AI
	translator, summarizer, err := factory.CreateTextServices(ai.TextSettings{
		Provider: cfg.TextProvider,
		APIKey:   cfg.TextAPIKey,
		Model:    cfg.TextModel,
		BaseURL:  cfg.TextBaseURL,
	})
	if err != nil {
		return fmt.Errorf("text provider: %w", err)
	}
	a.capabilities.SetTranslator(translator)
	a.capabilities.SetSummarizer(summarizer)
	return nil
}

func (a *app) buildEmbedding(ctx context.Context, factory *ai.Factory) error {
	cfg := a.cfg.AI
	embedding, err := factory.CreateEmbeddingService(ai.EmbeddingSettings{
		Provider:   cfg.EmbeddingProvider,
		APIKey:     cfg.EmbeddingAPIKey,
		Model:      cfg.EmbeddingModel,
		BaseURL:    cfg.EmbeddingBaseURL,
		Dimensions: cfg.EmbeddingDimensions,
	})
	if err != nil {
		return fmt.Errorf("embedding provider: %w", err)
	}
	if err := a.capabilities.ValidateAndSetEmbedding(ctx, embedding); err != nil {
		a.logger.Warn("embedding provider unavailable, continuing without embeddings",
			"provider", cfg.EmbeddingProvider, "error", err)
	}
	return nil
}

func (a *app) newMaintenance() *services.Maintenance {
	if !a.cfg.Scheduler.Enabled {
		a.logger.Info("maintenance disabled via SCHEDULER_ENABLED=false")
		return nil
	}
	return services.NewMaintenance(services.MaintenanceConfig{
		Queue:        a.queue,
		Documents:    a.documents,
		Lock:         a.lock,
		Logger:       a.logger,
		Interval:     a.cfg.Scheduler.Interval,
		StaleAfter:   a.cfg.Scheduler.StaleAfter,
		LockRequired: a.cfg.Scheduler.LockRequired,
	})
}

func (a *app) newWorker() *worker.Worker {
	return worker.NewWorker(worker.WorkerConfig{
		Queue:          a.queue,
		Processor:      a.pipeline,
		Maintenance:    a.newMaintenance(),
		Logger:         a.logger,
		Concurrency:    a.cfg.Worker.Concurrency,
		DequeueTimeout: a.cfg.Worker.DequeueTimeout,
	})
}

func (a *app) newServer() *http.Server {
	checks := map[string]http.Pinger{"queue": a.queue}
	if a.db != nil {
		checks["postgres"] = a.db
	}
	if a.redis != nil {
		checks["redis"] = redisPinger{a.redis}
	}
	return http.NewServer(http.Config{
		Host:           a.cfg.Server.Host,
		Port:           a.cfg.Server.Port,
		Version:        version,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
		Logger:         a.logger,
	}, http.Services{
		Documents:    a.docs,
		Ingestion:    a.ingestion,
		Search:       a.search,
		Capabilities: a.capabilities,
	}, checks)
}

// Close releases the capability adapters and the connections.
func (a *app) Close() error {
	var errs []error
	if a.capabilities != nil {
		errs = append(errs, a.capabilities.Close())
	}
	if a.queue != nil {
		errs = append(errs, a.queue.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

type redisPinger struct {
	client goredis.UniversalClient
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
