package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

const documentColumns = `id, status, content_ref, mime_type, title, original_text, translated_text,
	summary, language, created_at, updated_at, processed_at`

// DocumentStore implements driven.DocumentStore using PostgreSQL
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Save creates or updates a document
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			content_ref = EXCLUDED.content_ref,
			mime_type = EXCLUDED.mime_type,
			title = EXCLUDED.title,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.Status,
		doc.ContentRef,
		doc.MimeType,
		doc.Title,
		NullString(doc.OriginalText),
		NullString(doc.TranslatedText),
		NullString(doc.Summary),
		doc.Language,
		doc.CreatedAt,
		doc.UpdatedAt,
		NullTime(doc.ProcessedAt),
	)
	return err
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var original, translated, summary sql.NullString
	var processedAt sql.NullTime

	err := row.Scan(
		&doc.ID,
		&doc.Status,
		&doc.ContentRef,
		&doc.MimeType,
		&doc.Title,
		&original,
		&translated,
		&summary,
		&doc.Language,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&processedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.OriginalText = StringPtr(original)
	doc.TranslatedText = StringPtr(translated)
	doc.Summary = StringPtr(summary)
	doc.ProcessedAt = TimePtr(processedAt)
	return &doc, nil
}

func scanDocuments(rows *sql.Rows) ([]*domain.Document, error) {
	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Get retrieves a document by ID
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// GetMany retrieves the documents that exist among ids
func (s *DocumentStore) GetMany(ctx context.Context, ids []string) (map[string]*domain.Document, error) {
	out := make(map[string]*domain.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		out[doc.ID] = doc
	}
	return out, nil
}

// List retrieves documents by status, oldest first
func (s *DocumentStore) List(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// exec runs an update on one document and maps zero rows to ErrNotFound.
func (s *DocumentStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateStatus sets the lifecycle status
func (s *DocumentStore) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	return s.exec(ctx, `UPDATE documents SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
}

// UpdateStatusIf sets the status only while the row still has status from.
func (s *DocumentStore) UpdateStatusIf(ctx context.Context, id string, from, to domain.DocumentStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return false, fmt.Errorf("update document status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM documents WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check document: %w", err)
	}
	if !exists {
		return false, domain.ErrNotFound
	}
	return false, nil
}

// SetExtraction stores the extracted text and detected language
func (s *DocumentStore) SetExtraction(ctx context.Context, id, text, language string) error {
	return s.exec(ctx,
		`UPDATE documents SET original_text = $2, language = $3, updated_at = NOW() WHERE id = $1`,
		id, text, language)
}

// SetTranslation stores the translated text
func (s *DocumentStore) SetTranslation(ctx context.Context, id, text string) error {
	return s.exec(ctx, `UPDATE documents SET translated_text = $2, updated_at = NOW() WHERE id = $1`, id, text)
}

// SetSummary stores the summary
func (s *DocumentStore) SetSummary(ctx context.Context, id, summary string) error {
	return s.exec(ctx, `UPDATE documents SET summary = $2, updated_at = NOW() WHERE id = $1`, id, summary)
}

// MarkProcessed sets status processed and processed_at
func (s *DocumentStore) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	return s.exec(ctx,
		`UPDATE documents SET status = $2, processed_at = $3, updated_at = NOW() WHERE id = $1`,
		id, domain.DocumentStatusProcessed, at)
}

// Delete deletes a document. Jobs and chunks cascade.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	return s.exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
}

// Count returns total document count
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}
