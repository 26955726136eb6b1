package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/chunker"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/runtime"
)

// StageTimeouts bounds the external calls of each stage.
type StageTimeouts struct {
	Extraction    time.Duration
	Translation   time.Duration
	Summarization time.Duration
	Embedding     time.Duration
}

// DefaultStageTimeouts returns the timeouts used for zero fields.
func DefaultStageTimeouts() StageTimeouts {
	return StageTimeouts{
		Extraction:    5 * time.Minute,
		Translation:   2 * time.Minute,
		Summarization: 2 * time.Minute,
		Embedding:     2 * time.Minute,
	}
}

func (t StageTimeouts) of(stage domain.Stage) time.Duration {
	switch stage {
	case domain.StageExtraction:
		return t.Extraction
	case domain.StageTranslation:
		return t.Translation
	case domain.StageSummarization:
		return t.Summarization
	}
	return t.Embedding
}

// PipelineConfig holds the collaborators and settings of a Pipeline.
type PipelineConfig struct {
	Jobs         *JobLifecycle
	Queue        driven.JobQueue
	Documents    driven.DocumentStore
	Content      driven.ContentStore
	Vectors      driven.VectorStore
	Capabilities *runtime.Services
	Chunker      *chunker.Chunker
	Logger       *slog.Logger

	// TargetLanguage is the language indexed text is translated into.
	// Empty disables translation.
	TargetLanguage   string
	SummaryMaxLength int // default 500
	EmbedBatchSize   int // default 32
	Timeouts         StageTimeouts
}

// Pipeline runs a claimed job through extraction, translation,
// summarization and chunk+embed, then swaps in the new chunk generation.
type Pipeline struct {
	jobs         *JobLifecycle
	queue        driven.JobQueue
	documents    driven.DocumentStore
	content      driven.ContentStore
	vectors      driven.VectorStore
	capabilities *runtime.Services
	chunker      *chunker.Chunker
	logger       *slog.Logger

	targetLanguage   string
	summaryMaxLength int
	embedBatchSize   int
	timeouts         StageTimeouts
	now              func() time.Time
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	jobs := cfg.Jobs
	if jobs == nil {
		jobs = NewJobLifecycle(cfg.Queue, cfg.Documents, logger)
	}

	ch := cfg.Chunker
	if ch == nil {
		ch, _ = chunker.New(chunker.DefaultConfig())
	}

	summaryMax := cfg.SummaryMaxLength
	if summaryMax <= 0 {
		summaryMax = 500
	}

	batch := cfg.EmbedBatchSize
	if batch <= 0 {
		batch = 32
	}

	timeouts := cfg.Timeouts
	defaults := DefaultStageTimeouts()
	if timeouts.Extraction <= 0 {
		timeouts.Extraction = defaults.Extraction
	}
	if timeouts.Translation <= 0 {
		timeouts.Translation = defaults.Translation
	}
	if timeouts.Summarization <= 0 {
		timeouts.Summarization = defaults.Summarization
	}
	if timeouts.Embedding <= 0 {
		timeouts.Embedding = defaults.Embedding
	}

	return &Pipeline{
		jobs:             jobs,
		queue:            cfg.Queue,
		documents:        cfg.Documents,
		content:          cfg.Content,
		vectors:          cfg.Vectors,
		capabilities:     cfg.Capabilities,
		chunker:          ch,
		logger:           logger,
		targetLanguage:   strings.ToLower(cfg.TargetLanguage),
		summaryMaxLength: summaryMax,
		embedBatchSize:   batch,
		timeouts:         timeouts,
		now:              time.Now,
	}
}

// run carries one job's state between stages.
type run struct {
	job    *domain.Job
	doc    *domain.Document
	logger *slog.Logger
	chunks []*domain.Chunk
}

// Process runs job to a terminal state. It returns nil when the job
// completed, domain.ErrJobCancelled when a cancel was observed, and the
// stage failure otherwise. The job's status and the document's status are
// updated before it returns.
func (p *Pipeline) Process(ctx context.Context, job *domain.Job) error {
	r := &run{
		job:    job,
		logger: p.logger.With("job_id", job.ID, "document_id", job.DocumentID),
	}
	start := p.now()
	r.logger.Info("processing document")

	if err := p.jobs.Started(ctx, job); err != nil {
		return p.fail(ctx, r, fmt.Errorf("start processing: %w", err))
	}

	stages := []struct {
		stage domain.Stage
		fn    func(context.Context, *run) error
	}{
		{domain.StageExtraction, p.extract},
		{domain.StageTranslation, p.translate},
		{domain.StageSummarization, p.summarize},
		{domain.StageEmbedding, p.embed},
	}

	progress := 0
	for _, s := range stages {
		if cancelled, err := p.jobs.Cancelled(ctx, job); err != nil {
			r.logger.Warn("failed to check for cancellation", "error", err)
		} else if cancelled {
			return p.abandon(ctx, r)
		}

		p.report(ctx, r, s.stage, progress)
		if err := p.runStage(ctx, r, s.stage, s.fn); err != nil {
			return p.fail(ctx, r, err)
		}
		progress = s.stage.Progress()
		p.report(ctx, r, s.stage, progress)
	}

	// The write commits the generation; a cancel seen now still keeps it out.
	if cancelled, err := p.jobs.Cancelled(ctx, job); err == nil && cancelled {
		return p.abandon(ctx, r)
	}
	if err := p.vectors.ReplaceChunks(ctx, job.DocumentID, r.chunks); err != nil {
		return p.fail(ctx, r, domain.NewStageError(domain.StageEmbedding, err))
	}

	if err := p.jobs.Succeed(ctx, job, p.now()); err != nil {
		r.logger.Error("failed to record completion", "error", err)
		return err
	}

	r.logger.Info("document processed",
		"chunks", len(r.chunks),
		"duration_seconds", time.Since(start).Seconds(),
	)
	return nil
}

// runStage bounds fn by the stage timeout. A deadline becomes the stage's
// error kind plus domain.ErrExternalServiceTimeout.
func (p *Pipeline) runStage(ctx context.Context, r *run, stage domain.Stage, fn func(context.Context, *run) error) error {
	timeout := p.timeouts.of(stage)
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(stageCtx, r)
	if err == nil {
		return nil
	}

	if errors.Is(stageCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("%w after %s: %w", domain.ErrExternalServiceTimeout, timeout, err)
	}

	var stageErr *domain.StageError
	if errors.As(err, &stageErr) {
		return err
	}
	return domain.NewStageError(stage, err)
}

func (p *Pipeline) report(ctx context.Context, r *run, stage domain.Stage, progress int) {
	err := p.queue.ReportProgress(ctx, r.job.ID, string(stage), progress)
	if err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
		r.logger.Warn("failed to report progress", "step", stage, "error", err)
	}
}

func (p *Pipeline) warn(ctx context.Context, r *run, warning string) {
	r.logger.Warn("pipeline warning", "warning", warning)
	if err := p.queue.AddWarning(ctx, r.job.ID, warning); err != nil {
		r.logger.Warn("failed to record warning", "error", err)
	}
}

func (p *Pipeline) fail(ctx context.Context, r *run, cause error) error {
	r.logger.Error("processing failed", "error", cause)
	if err := p.jobs.Fail(ctx, r.job, cause); err != nil {
		r.logger.Error("failed to record failure", "error", err)
	}
	return cause
}

func (p *Pipeline) abandon(ctx context.Context, r *run) error {
	r.logger.Info("job cancelled, stopping")
	if err := p.jobs.Abandon(ctx, r.job); err != nil {
		r.logger.Warn("failed to reset document", "error", err)
	}
	return domain.ErrJobCancelled
}

func (p *Pipeline) extract(ctx context.Context, r *run) error {
	doc, err := p.documents.Get(ctx, r.job.DocumentID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}
	r.doc = doc

	raw, err := p.content.Get(ctx, doc.ContentRef)
	if err != nil {
		return fmt.Errorf("read content: %w", err)
	}

	out, err := p.capabilities.Extractor().Extract(ctx, raw, doc.MimeType)
	if err != nil {
		return err
	}
	if strings.TrimSpace(out.Text) == "" {
		return fmt.Errorf("%w: no text extracted", domain.ErrInvalidInput)
	}
	if out.Partial {
		p.warn(ctx, r, "extraction: some pages could not be read")
	}

	language := strings.ToLower(out.Language)
	if err := p.documents.SetExtraction(ctx, doc.ID, out.Text, language); err != nil {
		return fmt.Errorf("store extracted text: %w", err)
	}
	doc.OriginalText = &out.Text
	doc.Language = language
	return nil
}

func (p *Pipeline) translate(ctx context.Context, r *run) error {
	doc := r.doc
	if p.targetLanguage == "" || doc.Language == p.targetLanguage {
		r.logger.Debug("translation skipped", "language", doc.Language, "target", p.targetLanguage)
		return nil
	}

	text, err := p.capabilities.Translator().Translate(ctx, *doc.OriginalText, p.targetLanguage)
	if errors.Is(err, domain.ErrUnconfigured) {
		r.logger.Debug("translation skipped, no translator configured")
		return nil
	}
	if err != nil {
		return err
	}

	if err := p.documents.SetTranslation(ctx, doc.ID, text); err != nil {
		return fmt.Errorf("store translation: %w", err)
	}
	doc.TranslatedText = &text
	return nil
}

// summarize never fails the job; failures become warnings.
func (p *Pipeline) summarize(ctx context.Context, r *run) error {
	doc := r.doc
	summary, err := p.capabilities.Summarizer().Summarize(ctx, doc.IndexText(), p.summaryMaxLength)
	switch {
	case errors.Is(err, domain.ErrUnconfigured):
		r.logger.Debug("summarization skipped, no summarizer configured")
		return nil
	case err != nil:
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", domain.ErrExternalServiceTimeout, err)
		}
		p.warn(ctx, r, domain.NewStageError(domain.StageSummarization, err).Error())
		return nil
	}

	if err := p.documents.SetSummary(ctx, doc.ID, summary); err != nil {
		p.warn(ctx, r, fmt.Sprintf("store summary: %v", err))
		return nil
	}
	doc.Summary = &summary
	return nil
}

// embed chunks the index text and embeds every chunk. Chunks whose content
// hash matches a stored chunk of the right dimension reuse its embedding.
// Nothing is written here; Process swaps the generation in afterwards.
func (p *Pipeline) embed(ctx context.Context, r *run) error {
	doc := r.doc
	indexedAt := p.now()

	var chunks []*domain.Chunk
	for seg := range p.chunker.Segments(chunker.Normalize(doc.IndexText())) {
		chunks = append(chunks, &domain.Chunk{
			DocumentID:  doc.ID,
			Index:       len(chunks),
			Content:     seg.Content,
			ContentHash: domain.HashContent(seg.Content),
			StartOffset: seg.Start,
			EndOffset:   seg.End,
			IndexedAt:   indexedAt,
		})
	}
	if len(chunks) == 0 {
		r.chunks = nil
		return nil
	}

	embedder := p.capabilities.EmbeddingService()
	dim := embedder.Dimensions()

	reused := 0
	if dim > 0 {
		previous, err := p.vectors.GetByDocument(ctx, doc.ID)
		if err != nil {
			r.logger.Warn("failed to load previous chunks, embedding all", "error", err)
		}
		byHash := make(map[string][]float32, len(previous))
		for _, c := range previous {
			if c.Dimension() == dim {
				byHash[c.ContentHash] = c.Embedding
			}
		}
		for _, c := range chunks {
			if emb, ok := byHash[c.ContentHash]; ok {
				c.Embedding = emb
				reused++
			}
		}
	}

	var pending []*domain.Chunk
	for _, c := range chunks {
		if c.Embedding == nil {
			pending = append(pending, c)
		}
	}

	for start := 0; start < len(pending); start += p.embedBatchSize {
		end := min(start+p.embedBatchSize, len(pending))
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := embedder.Embed(ctx, texts)
		if errors.Is(err, domain.ErrUnconfigured) {
			// Without a model the document is stored unindexed; stale
			// chunks are dropped so search never returns outdated text.
			p.warn(ctx, r, "embedding skipped: "+domain.ErrUnconfigured.Error())
			r.chunks = nil
			return nil
		}
		if err != nil {
			return err
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("expected %d embeddings, got %d", len(batch), len(vectors))
		}
		for i, c := range batch {
			if dim > 0 && len(vectors[i]) != dim {
				return fmt.Errorf("%w: model returned %d, expected %d", domain.ErrDimensionMismatch, len(vectors[i]), dim)
			}
			c.Embedding = vectors[i]
		}
	}

	if _, err := domain.BatchDimension(chunks); err != nil {
		return err
	}

	r.logger.Debug("chunks embedded", "chunks", len(chunks), "reused", reused)
	r.chunks = chunks
	return nil
}
