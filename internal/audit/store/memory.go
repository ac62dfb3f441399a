package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"trapper/internal/audit/models"
	id "trapper/pkg/domain"
)

// MemoryStore is an in-memory audit store for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*models.Entry
	outbox  []*models.OutboxMessage
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	cp.CreatedAt = time.Now().UTC()
	s.entries = append(s.entries, &cp)

	payload, err := json.Marshal(map[string]string{
		"correction_id": entry.ID.String(),
		"entity_id":     entry.EntityID.String(),
		"change_type":   string(entry.ChangeType),
	})
	if err != nil {
		return err
	}
	s.outbox = append(s.outbox, &models.OutboxMessage{
		ID:        id.NewEntityID(),
		TopicKey:  entry.EntityID.String(),
		Payload:   payload,
		CreatedAt: cp.CreatedAt,
	})
	return nil
}

func (s *MemoryStore) ListByEntity(_ context.Context, entityType string, entityID id.EntityID) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Entry
	for _, e := range s.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListUnpublished(_ context.Context, limit int) ([]*models.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.OutboxMessage
	for _, m := range s.outbox {
		if m.PublishedAt == nil {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) MarkPublished(_ context.Context, messageID id.EntityID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.outbox {
		if m.ID == messageID && m.PublishedAt == nil {
			published := at
			m.PublishedAt = &published
			return nil
		}
	}
	return ErrNotFound
}

// Entries returns everything appended so far, for assertions.
func (s *MemoryStore) Entries() []*models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := *e
		out = append(out, &cp)
	}
	return out
}
