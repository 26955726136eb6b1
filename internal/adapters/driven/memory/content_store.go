package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ContentStore = (*ContentStore)(nil)

// ContentStore keeps raw content in memory.
type ContentStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewContentStore creates an empty content store.
func NewContentStore() *ContentStore {
	return &ContentStore{blobs: make(map[string][]byte)}
}

// Put implements driven.ContentStore.
func (s *ContentStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	ref := "mem://" + uuid.New().String() + "/" + name

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[ref] = append([]byte(nil), data...)
	return ref, nil
}

// Get implements driven.ContentStore.
func (s *ContentStore) Get(ctx context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Delete implements driven.ContentStore.
func (s *ContentStore) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, ref)
	return nil
}
