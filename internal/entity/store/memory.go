package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"trapper/internal/entity/models"
	id "trapper/pkg/domain"
)

// MemoryStore is an in-memory entity store for tests.
type MemoryStore struct {
	mu       sync.RWMutex
	entities map[id.EntityID]*models.Entity
}

// NewMemory constructs an empty in-memory entity store.
func NewMemory() *MemoryStore {
	return &MemoryStore{entities: make(map[id.EntityID]*models.Entity)}
}

func (s *MemoryStore) Create(_ context.Context, e *models.Entity) error {
	if e == nil {
		return fmt.Errorf("entity is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[e.ID]; ok {
		return fmt.Errorf("entity %s already exists", e.ID)
	}
	now := time.Now().UTC()
	cp := *e
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.entities[e.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, entityID id.EntityID) (*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[entityID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) UpsertBySource(_ context.Context, e *models.Entity) (*models.Entity, bool, error) {
	if e == nil {
		return nil, false, fmt.Errorf("entity is required")
	}
	if e.SourceSystem == "" || e.SourceRecordID == "" {
		return nil, false, fmt.Errorf("source system and record id are required for upsert")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, existing := range s.entities {
		if existing.SourceSystem != e.SourceSystem || existing.SourceRecordID != e.SourceRecordID {
			continue
		}
		if e.DisplayName != "" {
			existing.DisplayName = e.DisplayName
		}
		if e.FormattedAddress != "" {
			existing.FormattedAddress = e.FormattedAddress
		}
		if e.AddressKey != "" {
			existing.AddressKey = e.AddressKey
		}
		if e.Latitude != nil {
			existing.Latitude = e.Latitude
		}
		if e.Longitude != nil {
			existing.Longitude = e.Longitude
		}
		if e.GeocodeVerified {
			existing.GeocodeVerified = true
		}
		if e.Microchip != "" {
			existing.Microchip = e.Microchip
		}
		existing.UpdatedAt = now
		cp := *existing
		return &cp, false, nil
	}

	cp := *e
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.entities[e.ID] = &cp
	out := cp
	return &out, true, nil
}

func (s *MemoryStore) Update(_ context.Context, e *models.Entity) error {
	if e == nil {
		return fmt.Errorf("entity is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entities[e.ID]
	if !ok {
		return ErrNotFound
	}
	cp := *e
	cp.CreatedAt = existing.CreatedAt
	cp.MergedInto = existing.MergedInto
	cp.MergedAt = existing.MergedAt
	cp.MergeReason = existing.MergeReason
	cp.UpdatedAt = time.Now().UTC()
	s.entities[e.ID] = &cp
	return nil
}

func (s *MemoryStore) Tombstone(_ context.Context, loserID, winnerID id.EntityID, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[loserID]
	if !ok || e.MergedInto != nil {
		return ErrNotFound
	}
	winner := winnerID
	mergedAt := at
	e.MergedInto = &winner
	e.MergedAt = &mergedAt
	e.MergeReason = reason
	e.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) ListActive(_ context.Context, kind id.Kind, limit, offset int) ([]*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*models.Entity
	for _, e := range s.entities {
		if e.Kind == kind && e.MergedInto == nil {
			cp := *e
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.String() < all[j].ID.String() })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemoryStore) AddressKeyCollisions(_ context.Context, kind id.Kind, limit int) ([]KeyCollision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byKey := make(map[string][]*models.Entity)
	for _, e := range s.entities {
		if e.Kind != kind || e.MergedInto != nil || e.AddressKey == "" {
			continue
		}
		byKey[e.AddressKey] = append(byKey[e.AddressKey], e)
	}

	var out []KeyCollision
	for key, group := range byKey {
		sort.Slice(group, func(i, j int) bool { return group[i].ID.String() < group[j].ID.String() })
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				out = append(out, KeyCollision{Key: key, AID: group[i].ID, BID: group[j].ID})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].AID.String() < out[j].AID.String()
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CoordinateNeighbors(_ context.Context, kind id.Kind, limit int) ([]KeyCollision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var located []*models.Entity
	for _, e := range s.entities {
		if e.Kind == kind && e.MergedInto == nil && e.HasCoordinates() {
			located = append(located, e)
		}
	}
	sort.Slice(located, func(i, j int) bool { return located[i].ID.String() < located[j].ID.String() })

	var out []KeyCollision
	for i := 0; i < len(located); i++ {
		for j := i + 1; j < len(located); j++ {
			a, b := located[i], located[j]
			if math.Abs(bucket(*a.Latitude)-bucket(*b.Latitude)) > 0.001+1e-9 {
				continue
			}
			if math.Abs(bucket(*a.Longitude)-bucket(*b.Longitude)) > 0.001+1e-9 {
				continue
			}
			key := fmt.Sprintf("%.3f,%.3f", bucket(*a.Latitude), bucket(*a.Longitude))
			out = append(out, KeyCollision{Key: key, AID: a.ID, BID: b.ID})
		}
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) MicrochipCollisions(_ context.Context, kind id.Kind, limit int) ([]KeyCollision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byChip := make(map[string][]*models.Entity)
	for _, e := range s.entities {
		if e.Kind != kind || e.MergedInto != nil || e.Microchip == "" {
			continue
		}
		byChip[e.Microchip] = append(byChip[e.Microchip], e)
	}

	var out []KeyCollision
	for chip, group := range byChip {
		sort.Slice(group, func(i, j int) bool { return group[i].ID.String() < group[j].ID.String() })
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				out = append(out, KeyCollision{Key: chip, AID: group[i].ID, BID: group[j].ID})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].AID.String() < out[j].AID.String()
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) FindByMicrochip(_ context.Context, kind id.Kind, chip string) (*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *models.Entity
	for _, e := range s.entities {
		if e.Kind != kind || e.MergedInto != nil || e.Microchip != chip {
			continue
		}
		if best == nil || e.CreatedAt.Before(best.CreatedAt) {
			best = e
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func bucket(v float64) float64 {
	return math.Round(v*1000) / 1000
}
