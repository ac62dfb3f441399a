package store

import (
	"context"
	"sort"
	"sync"

	id "trapper/pkg/domain"
)

// scalarRef is one single-column entity reference on a request row.
type scalarRef struct {
	RequestID id.EntityID
	Field     string
	EntityID  id.EntityID
}

// MemoryStore is an in-memory edge store for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	edges   map[Edge]bool
	links   map[RequestLink]bool
	scalars []scalarRef
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		edges: make(map[Edge]bool),
		links: make(map[RequestLink]bool),
	}
}

func (s *MemoryStore) AddEdge(_ context.Context, e Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[e] = true
	return nil
}

func (s *MemoryStore) AddRequestLink(_ context.Context, l RequestLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[l] = true
	return nil
}

// SetScalarReference records a request-level single-column reference, for
// example a request's primary place.
func (s *MemoryStore) SetScalarReference(requestID id.EntityID, field string, entityID id.EntityID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.scalars {
		if s.scalars[i].RequestID == requestID && s.scalars[i].Field == field {
			s.scalars[i].EntityID = entityID
			return
		}
	}
	s.scalars = append(s.scalars, scalarRef{RequestID: requestID, Field: field, EntityID: entityID})
}

func (s *MemoryStore) EdgesFor(_ context.Context, entityID id.EntityID) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Edge
	for e := range s.edges {
		if e.EntityID == entityID || e.OtherID == entityID {
			out = append(out, e)
		}
	}
	sortEdges(out)
	return out, nil
}

func (s *MemoryStore) LinksFor(_ context.Context, entityID id.EntityID) ([]RequestLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []RequestLink
	for l := range s.links {
		if l.EntityID == entityID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestID != out[j].RequestID {
			return out[i].RequestID.String() < out[j].RequestID.String()
		}
		return out[i].Role < out[j].Role
	})
	return out, nil
}

func (s *MemoryStore) RepointEdges(_ context.Context, loser, winner id.EntityID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for e := range s.edges {
		if e.EntityID != loser && e.OtherID != loser {
			continue
		}
		delete(s.edges, e)

		moved := e
		if moved.EntityID == loser {
			moved.EntityID = winner
		}
		if moved.OtherID == loser {
			moved.OtherID = winner
		}
		if moved.EntityID == moved.OtherID {
			continue
		}
		if s.edges[moved] {
			continue
		}
		s.edges[moved] = true
		n++
	}
	return n, nil
}

func (s *MemoryStore) RepointRequestLinks(_ context.Context, loser, winner id.EntityID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for l := range s.links {
		if l.EntityID != loser {
			continue
		}
		delete(s.links, l)

		moved := l
		moved.EntityID = winner
		if s.links[moved] {
			continue
		}
		s.links[moved] = true
		n++
	}
	return n, nil
}

func (s *MemoryStore) RepointScalarReferences(_ context.Context, loser, winner id.EntityID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for i := range s.scalars {
		if s.scalars[i].EntityID == loser {
			s.scalars[i].EntityID = winner
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountReferences(_ context.Context, entityID id.EntityID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for e := range s.edges {
		if e.EntityID == entityID || e.OtherID == entityID {
			n++
		}
	}
	for l := range s.links {
		if l.EntityID == entityID {
			n++
		}
	}
	for _, ref := range s.scalars {
		if ref.EntityID == entityID {
			n++
		}
	}
	return n, nil
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].EntityID != edges[j].EntityID {
			return edges[i].EntityID.String() < edges[j].EntityID.String()
		}
		if edges[i].OtherID != edges[j].OtherID {
			return edges[i].OtherID.String() < edges[j].OtherID.String()
		}
		return edges[i].Relationship < edges[j].Relationship
	})
}
