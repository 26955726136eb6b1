package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/similarity"
)

// Verify interface compliance
var _ driven.VectorStore = (*VectorStore)(nil)

const chunkColumns = `document_id, chunk_index, content, content_hash, embedding, start_offset, end_offset, indexed_at`

// VectorStore implements driven.VectorStore on the chunks table with
// embeddings stored as REAL[]. Similarity is computed in the process.
//
// Writers lock the single vector_meta row first, which serializes every
// change of the store dimension against chunk writes.
type VectorStore struct {
	db *DB
}

// NewVectorStore creates a new VectorStore
func NewVectorStore(db *DB) *VectorStore {
	return &VectorStore{db: db}
}

// ReplaceChunks implements driven.VectorStore. The delete and the inserts
// commit together, so a concurrent Search statement sees one generation.
func (s *VectorStore) ReplaceChunks(ctx context.Context, documentID string, chunks []*domain.Chunk) error {
	dim, err := domain.BatchDimension(chunks)
	if err != nil {
		return err
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if len(chunks) > 0 {
			var stored int
			err := tx.QueryRowContext(ctx, `
				UPDATE vector_meta SET dimension = COALESCE(dimension, $1)
				WHERE id
				RETURNING dimension
			`, dim).Scan(&stored)
			if err != nil {
				return fmt.Errorf("lock vector meta: %w", err)
			}
			if stored != dim {
				return fmt.Errorf("%w: store has %d, got %d", domain.ErrDimensionMismatch, stored, dim)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
			return fmt.Errorf("delete previous chunks: %w", err)
		}
		if len(chunks) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (`+chunkColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range chunks {
			_, err = stmt.ExecContext(ctx,
				documentID,
				c.Index,
				c.Content,
				c.ContentHash,
				pq.Array(c.Embedding),
				c.StartOffset,
				c.EndOffset,
				c.IndexedAt,
			)
			if err != nil {
				return fmt.Errorf("insert chunk %d: %w", c.Index, err)
			}
		}
		return nil
	})
}

func scanChunk(row rowScanner) (*domain.Chunk, error) {
	var c domain.Chunk
	var embedding pq.Float32Array
	err := row.Scan(
		&c.DocumentID,
		&c.Index,
		&c.Content,
		&c.ContentHash,
		&embedding,
		&c.StartOffset,
		&c.EndOffset,
		&c.IndexedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Embedding = []float32(embedding)
	return &c, nil
}

// Search implements driven.VectorStore. Dimension and chunks are read in
// one repeatable-read snapshot so a concurrent reindex cannot split them.
func (s *VectorStore) Search(ctx context.Context, query []float32, k int) ([]*domain.ScoredChunk, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin search: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var dim sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT dimension FROM vector_meta WHERE id`).Scan(&dim); err != nil {
		return nil, fmt.Errorf("read dimension: %w", err)
	}
	if !dim.Valid {
		return []*domain.ScoredChunk{}, nil
	}
	if int64(len(query)) != dim.Int64 {
		return nil, fmt.Errorf("%w: store has %d, query has %d", domain.ErrDimensionMismatch, dim.Int64, len(query))
	}

	rows, err := tx.QueryContext(ctx, `SELECT `+chunkColumns+` FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}
	defer rows.Close()

	top := similarity.NewTopK(k)
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		top.Offer(query, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return top.Results(), nil
}

// GetByDocument implements driven.VectorStore.
func (s *VectorStore) GetByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE document_id = $1 ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteByDocument implements driven.VectorStore.
func (s *VectorStore) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	return err
}

// Reindex implements driven.VectorStore.
func (s *VectorStore) Reindex(ctx context.Context) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		// Same lock order as ReplaceChunks: meta row first
		if _, err := tx.ExecContext(ctx, `SELECT dimension FROM vector_meta WHERE id FOR UPDATE`); err != nil {
			return fmt.Errorf("lock vector meta: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
			return fmt.Errorf("clear chunks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE vector_meta SET dimension = NULL WHERE id`); err != nil {
			return fmt.Errorf("reset dimension: %w", err)
		}
		return nil
	})
}

// Dimension implements driven.VectorStore.
func (s *VectorStore) Dimension(ctx context.Context) (int, error) {
	var dim sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT dimension FROM vector_meta WHERE id`).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(dim.Int64), nil
}

// Count implements driven.VectorStore.
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}
