package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"trapper/internal/request/models"
	id "trapper/pkg/domain"
)

// MemoryStore is an in-memory request store for tests.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[id.EntityID]*models.Request
}

func NewMemory() *MemoryStore {
	return &MemoryStore{requests: make(map[id.EntityID]*models.Request)}
}

func (s *MemoryStore) Create(_ context.Context, r *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *r
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.requests[r.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, requestID id.EntityID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) SetStatus(_ context.Context, requestID id.EntityID, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[requestID]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ClearPrimaries(_ context.Context, requestID id.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[requestID]
	if !ok {
		return ErrNotFound
	}
	r.PrimaryPlaceID = nil
	r.PrimaryPersonID = nil
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ListByPrimary(_ context.Context, entityID id.EntityID) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Request
	for _, r := range s.requests {
		if (r.PrimaryPlaceID != nil && *r.PrimaryPlaceID == entityID) ||
			(r.PrimaryPersonID != nil && *r.PrimaryPersonID == entityID) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CaseNumber < out[j].CaseNumber })
	return out, nil
}
