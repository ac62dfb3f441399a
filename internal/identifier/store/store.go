package store

import (
	"context"
	"time"

	"trapper/internal/identifier/models"
	id "trapper/pkg/domain"
	"trapper/pkg/platform/sentinel"
)

var (
	ErrNotFound = sentinel.ErrNotFound
	ErrConflict = sentinel.ErrConflict
)

// Store owns identifiers and their update trail.
type Store interface {
	// FindOwner returns the identifier row holding (type, normalized), or
	// ErrNotFound when the value is unowned.
	FindOwner(ctx context.Context, idType models.IdentifierType, normalized string) (*models.Identifier, error)
	ListByPerson(ctx context.Context, personID id.EntityID) ([]*models.Identifier, error)

	// Insert adds an identifier, returning ErrConflict when another row
	// already holds the same (type, normalized_value).
	Insert(ctx context.Context, ident *models.Identifier) error
	UpdateValue(ctx context.Context, identID id.EntityID, raw, normalized string) error

	// RepointToPerson moves the loser's identifiers to the winner, deleting
	// loser rows whose normalized value the winner already owns.
	RepointToPerson(ctx context.Context, loser, winner id.EntityID) (int, error)

	CreateUpdate(ctx context.Context, rec *models.UpdateRecord) error
	GetUpdate(ctx context.Context, updateID id.UpdateID) (*models.UpdateRecord, error)
	MarkUpdateApplied(ctx context.Context, updateID id.UpdateID, applied bool, notes string, at time.Time) error
	ListPendingUpdates(ctx context.Context, limit int) ([]*models.UpdateRecord, error)
}
