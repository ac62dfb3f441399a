package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"trapper/internal/match/models"
	id "trapper/pkg/domain"
)

type candidateKey struct {
	SourceSystem   string
	SourceRecordID string
	PersonID       id.EntityID
}

// MemoryStore is an in-memory review queue for tests.
type MemoryStore struct {
	mu         sync.RWMutex
	candidates map[candidateKey]*models.ReviewCandidate
}

func NewMemory() *MemoryStore {
	return &MemoryStore{candidates: make(map[candidateKey]*models.ReviewCandidate)}
}

func (s *MemoryStore) Upsert(_ context.Context, c *models.ReviewCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := candidateKey{c.SourceSystem, c.SourceRecordID, c.CandidatePersonID}
	if existing, ok := s.candidates[key]; ok {
		if c.Confidence > existing.Confidence {
			existing.Confidence = c.Confidence
		}
		existing.Evidence = c.Evidence
		return nil
	}
	cp := *c
	cp.CreatedAt = time.Now().UTC()
	s.candidates[key] = &cp
	return nil
}

func (s *MemoryStore) ListBySource(_ context.Context, sourceSystem, sourceRecordID string) ([]*models.ReviewCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ReviewCandidate
	for key, c := range s.candidates {
		if key.SourceSystem == sourceSystem && key.SourceRecordID == sourceRecordID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out, nil
}
