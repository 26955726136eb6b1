package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore keeps documents in a map.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*domain.Document
}

// NewDocumentStore creates an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*domain.Document)}
}

func cloneDocument(d *domain.Document) *domain.Document {
	c := *d
	c.OriginalText = cloneString(d.OriginalText)
	c.TranslatedText = cloneString(d.TranslatedText)
	c.Summary = cloneString(d.Summary)
	if d.ProcessedAt != nil {
		at := *d.ProcessedAt
		c.ProcessedAt = &at
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Save implements driven.DocumentStore.
func (s *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = cloneDocument(doc)
	return nil
}

// Get implements driven.DocumentStore.
func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneDocument(doc), nil
}

// GetMany implements driven.DocumentStore.
func (s *DocumentStore) GetMany(ctx context.Context, ids []string) (map[string]*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*domain.Document, len(ids))
	for _, id := range ids {
		if doc, ok := s.docs[id]; ok {
			out[id] = cloneDocument(doc)
		}
	}
	return out, nil
}

// List implements driven.DocumentStore.
func (s *DocumentStore) List(ctx context.Context, status domain.DocumentStatus, limit, offset int) ([]*domain.Document, error) {
	s.mu.RLock()
	var out []*domain.Document
	for _, doc := range s.docs {
		if status == "" || doc.Status == status {
			out = append(out, cloneDocument(doc))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, limit, offset), nil
}

func (s *DocumentStore) update(id string, fn func(*domain.Document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(doc)
	doc.UpdatedAt = time.Now()
	return nil
}

// UpdateStatus implements driven.DocumentStore.
func (s *DocumentStore) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	return s.update(id, func(d *domain.Document) { d.Status = status })
}

// UpdateStatusIf implements driven.DocumentStore.
func (s *DocumentStore) UpdateStatusIf(ctx context.Context, id string, from, to domain.DocumentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if doc.Status != from {
		return false, nil
	}
	doc.Status = to
	doc.UpdatedAt = time.Now()
	return true, nil
}

// SetExtraction implements driven.DocumentStore.
func (s *DocumentStore) SetExtraction(ctx context.Context, id, text, language string) error {
	return s.update(id, func(d *domain.Document) {
		d.OriginalText = &text
		d.Language = language
	})
}

// SetTranslation implements driven.DocumentStore.
func (s *DocumentStore) SetTranslation(ctx context.Context, id, text string) error {
	return s.update(id, func(d *domain.Document) { d.TranslatedText = &text })
}

// SetSummary implements driven.DocumentStore.
func (s *DocumentStore) SetSummary(ctx context.Context, id, summary string) error {
	return s.update(id, func(d *domain.Document) { d.Summary = &summary })
}

// MarkProcessed implements driven.DocumentStore.
func (s *DocumentStore) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	return s.update(id, func(d *domain.Document) {
		d.Status = domain.DocumentStatusProcessed
		d.ProcessedAt = &at
	})
}

// Delete implements driven.DocumentStore.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

// Count implements driven.DocumentStore.
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}
