package store

import (
	"context"

	id "trapper/pkg/domain"
	"trapper/pkg/platform/sentinel"
)

var ErrNotFound = sentinel.ErrNotFound

// Edge is one undirected relationship between two entities.
type Edge struct {
	EntityID     id.EntityID
	OtherID      id.EntityID
	Relationship string
}

// RequestLink attaches an entity to a service request in a given role.
type RequestLink struct {
	RequestID id.EntityID
	EntityID  id.EntityID
	Role      string
}

// Store owns the relationship graph around entities and the request links
// that reference them. Repoint operations run inside merge transactions and
// must leave no edge pointing at the loser.
type Store interface {
	AddEdge(ctx context.Context, e Edge) error
	AddRequestLink(ctx context.Context, l RequestLink) error
	EdgesFor(ctx context.Context, entityID id.EntityID) ([]Edge, error)
	LinksFor(ctx context.Context, entityID id.EntityID) ([]RequestLink, error)

	// RepointEdges rewrites every edge touching loser to touch winner,
	// dropping edges that would duplicate an existing winner edge or loop
	// the winner back onto itself. Returns the number of surviving rewrites.
	RepointEdges(ctx context.Context, loser, winner id.EntityID) (int, error)

	// RepointRequestLinks rewrites request links from loser to winner,
	// dropping links the winner already holds for the same request and role.
	RepointRequestLinks(ctx context.Context, loser, winner id.EntityID) (int, error)

	// RepointScalarReferences rewrites single-column foreign keys on
	// requests (primary place, primary person) from loser to winner.
	RepointScalarReferences(ctx context.Context, loser, winner id.EntityID) (int, error)

	// CountReferences reports how many edges, links, and scalar references
	// still point at the entity. Zero everywhere after a merge is the
	// invariant merges are checked against.
	CountReferences(ctx context.Context, entityID id.EntityID) (int, error)
}
