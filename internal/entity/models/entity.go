package models

import (
	"time"

	id "trapper/pkg/domain"
)

// Entity is one resolvable record: a place, person, or animal. The three
// kinds share a lifecycle: created by ingestion, mutated by edits and the
// merge executor, and superseded (never deleted) by acquiring a non-nil
// MergedInto pointer.
type Entity struct {
	ID   id.EntityID
	Kind id.Kind

	// Idempotent ingestion key. Empty for records created by hand.
	SourceSystem   string
	SourceRecordID string

	DisplayName string

	// Place fields.
	FormattedAddress string
	// AddressKey is the normalized comparison form of FormattedAddress,
	// maintained on every write so detector blocking can index it.
	AddressKey          string
	Latitude            *float64
	Longitude           *float64
	GeocodeVerified     bool
	StructuredAddressID *id.EntityID

	// Animal fields.
	Microchip string

	// Person fields. IsCanonical is a cached projection of the classifier;
	// see classify.Service for the staleness contract.
	IsCanonical bool

	// Tombstone pointer. Once set the entity is merged away and must hold
	// zero active relationship edges.
	MergedInto  *id.EntityID
	MergedAt    *time.Time
	MergeReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTombstone reports whether this entity has been merged away.
func (e *Entity) IsTombstone() bool {
	return e.MergedInto != nil
}

// HasCoordinates reports whether both latitude and longitude are present.
func (e *Entity) HasCoordinates() bool {
	return e.Latitude != nil && e.Longitude != nil
}
