package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"trapper/internal/patterns/models"
)

// MemoryStore is an in-memory pattern store for tests.
type MemoryStore struct {
	mu       sync.RWMutex
	patterns []*models.Pattern
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(_ context.Context, p *models.Pattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	cp.CreatedAt = time.Now().UTC()
	s.patterns = append(s.patterns, &cp)
	return nil
}

func (s *MemoryStore) ListActive(_ context.Context) ([]*models.Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Pattern
	for _, p := range s.patterns {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Pattern < out[j].Pattern
	})
	return out, nil
}

func (s *MemoryStore) Deactivate(_ context.Context, patternID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.patterns {
		if p.ID.String() == patternID {
			p.IsActive = false
			return nil
		}
	}
	return ErrNotFound
}
