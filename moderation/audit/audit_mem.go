package audit

import (
	"context"
	"sync"
)

// In-process store for tests and local development.
type MemStore struct {
	mu   sync.Mutex
	recs []AuditRecord
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Append(ctx context.Context, rec *AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Excerpt = truncateExcerpt(rec.Excerpt)
	rec.ID = uint(len(s.recs) + 1)
	s.recs = append(s.recs, *rec)
	return nil
}

func (s *MemStore) ListByUser(ctx context.Context, userID string, limit int) ([]AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	limit = clampLimit(limit)
	var out []AuditRecord
	for i := len(s.recs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.recs[i].UserID == userID {
			out = append(out, s.recs[i])
		}
	}
	return out, nil
}

func (s *MemStore) ListRecent(ctx context.Context, limit int) ([]AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	limit = clampLimit(limit)
	var out []AuditRecord
	for i := len(s.recs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.recs[i])
	}
	return out, nil
}
