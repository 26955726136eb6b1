package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ContentStore = (*ContentStore)(nil)

const contentRefPrefix = "pg://"

// ContentStore keeps raw uploads in the contents table.
type ContentStore struct {
	db *DB
}

// NewContentStore creates a new ContentStore
func NewContentStore(db *DB) *ContentStore {
	return &ContentStore{db: db}
}

// Put implements driven.ContentStore.
func (s *ContentStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	ref := contentRefPrefix + uuid.New().String() + "/" + name
	_, err := s.db.ExecContext(ctx, `INSERT INTO contents (ref, data) VALUES ($1, $2)`, ref, data)
	if err != nil {
		return "", err
	}
	return ref, nil
}

// Get implements driven.ContentStore.
func (s *ContentStore) Get(ctx context.Context, ref string) ([]byte, error) {
	if !strings.HasPrefix(ref, contentRefPrefix) {
		return nil, domain.ErrNotFound
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM contents WHERE ref = $1`, ref).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Delete implements driven.ContentStore.
func (s *ContentStore) Delete(ctx context.Context, ref string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM contents WHERE ref = $1`, ref)
	return err
}
