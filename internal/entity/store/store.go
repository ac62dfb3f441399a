package store

import (
	"context"
	"time"

	"trapper/internal/entity/models"
	id "trapper/pkg/domain"
	"trapper/pkg/platform/sentinel"
)

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = sentinel.ErrNotFound

// KeyCollision is a pair of active entities sharing a comparison key.
type KeyCollision struct {
	Key string
	AID id.EntityID
	BID id.EntityID
}

// Store is the persistence boundary for resolvable entities. Postgres
// methods honor a transaction carried in context (pkg/platform/tx) so the
// merge executor can compose them into one atomic unit.
type Store interface {
	Create(ctx context.Context, e *models.Entity) error
	Get(ctx context.Context, entityID id.EntityID) (*models.Entity, error)

	// UpsertBySource inserts or refreshes a record keyed on
	// (source_system, source_record_id). Incoming non-empty fields win;
	// existing values survive when the incoming field is empty. Returns the
	// stored entity and whether a new row was created.
	UpsertBySource(ctx context.Context, e *models.Entity) (*models.Entity, bool, error)

	// Update persists descriptive fields (name, address, coordinates,
	// microchip, canonical flag) of an existing entity.
	Update(ctx context.Context, e *models.Entity) error

	// Tombstone marks loser merged into winner. Fails with ErrNotFound if
	// the loser does not exist.
	Tombstone(ctx context.Context, loserID, winnerID id.EntityID, reason string, at time.Time) error

	// ListActive returns non-tombstoned entities of a kind in stable id
	// order, paged by offset.
	ListActive(ctx context.Context, kind id.Kind, limit, offset int) ([]*models.Entity, error)

	// AddressKeyCollisions returns pairs of active entities of the kind
	// whose address keys are equal, generated from the address-key index.
	AddressKeyCollisions(ctx context.Context, kind id.Kind, limit int) ([]KeyCollision, error)

	// CoordinateNeighbors returns pairs of active entities of the kind in
	// the same or adjacent coordinate buckets, capped at limit. Distance
	// filtering is the detector's job; bucketing only bounds the candidate
	// set.
	CoordinateNeighbors(ctx context.Context, kind id.Kind, limit int) ([]KeyCollision, error)

	// MicrochipCollisions returns pairs of active entities of the kind
	// sharing a non-empty microchip value.
	MicrochipCollisions(ctx context.Context, kind id.Kind, limit int) ([]KeyCollision, error)

	// FindByMicrochip returns the active entity of the kind carrying the
	// chip, or ErrNotFound.
	FindByMicrochip(ctx context.Context, kind id.Kind, chip string) (*models.Entity, error)
}
