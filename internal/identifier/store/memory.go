package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"trapper/internal/identifier/models"
	id "trapper/pkg/domain"
)

// MemoryStore is an in-memory identifier store for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	idents  map[id.EntityID]*models.Identifier
	updates map[id.UpdateID]*models.UpdateRecord
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		idents:  make(map[id.EntityID]*models.Identifier),
		updates: make(map[id.UpdateID]*models.UpdateRecord),
	}
}

func (s *MemoryStore) FindOwner(_ context.Context, idType models.IdentifierType, normalized string) (*models.Identifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ident := range s.idents {
		if ident.Type == idType && ident.NormalizedValue == normalized {
			cp := *ident
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListByPerson(_ context.Context, personID id.EntityID) ([]*models.Identifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Identifier
	for _, ident := range s.idents {
		if ident.PersonID == personID {
			cp := *ident
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].NormalizedValue < out[j].NormalizedValue
	})
	return out, nil
}

func (s *MemoryStore) Insert(_ context.Context, ident *models.Identifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.idents {
		if existing.Type == ident.Type && existing.NormalizedValue == ident.NormalizedValue {
			return ErrConflict
		}
	}
	cp := *ident
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.idents[ident.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateValue(_ context.Context, identID id.EntityID, raw, normalized string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.idents[identID]
	if !ok {
		return ErrNotFound
	}
	for otherID, other := range s.idents {
		if otherID != identID && other.Type == target.Type && other.NormalizedValue == normalized {
			return ErrConflict
		}
	}
	target.RawValue = raw
	target.NormalizedValue = normalized
	target.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) RepointToPerson(_ context.Context, loser, winner id.EntityID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owned := make(map[string]bool)
	for _, ident := range s.idents {
		if ident.PersonID == winner {
			owned[string(ident.Type)+"\x00"+ident.NormalizedValue] = true
		}
	}

	n := 0
	for identID, ident := range s.idents {
		if ident.PersonID != loser {
			continue
		}
		if owned[string(ident.Type)+"\x00"+ident.NormalizedValue] {
			delete(s.idents, identID)
			continue
		}
		ident.PersonID = winner
		ident.UpdatedAt = time.Now().UTC()
		n++
	}
	return n, nil
}

func (s *MemoryStore) CreateUpdate(_ context.Context, rec *models.UpdateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	cp.CreatedAt = time.Now().UTC()
	s.updates[rec.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUpdate(_ context.Context, updateID id.UpdateID) (*models.UpdateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.updates[updateID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) MarkUpdateApplied(_ context.Context, updateID id.UpdateID, applied bool, notes string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.updates[updateID]
	if !ok {
		return ErrNotFound
	}
	rec.WasApplied = applied
	rec.ApplyNotes = notes
	appliedAt := at
	rec.AppliedAt = &appliedAt
	return nil
}

func (s *MemoryStore) ListPendingUpdates(_ context.Context, limit int) ([]*models.UpdateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.UpdateRecord
	for _, rec := range s.updates {
		if !rec.WasApplied && rec.AppliedAt == nil {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
