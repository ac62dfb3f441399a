// Package domain holds typed identifiers and small domain values shared by
// every layer. Construct IDs via the Parse helpers at trust boundaries;
// direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "trapper/pkg/domain-errors"
)

// EntityID identifies a resolvable entity (place, person, or animal).
type EntityID uuid.UUID

// UpdateID identifies an identifier update record.
type UpdateID uuid.UUID

func (id EntityID) String() string { return uuid.UUID(id).String() }
func (id EntityID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id UpdateID) String() string { return uuid.UUID(id).String() }
func (id UpdateID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// NewEntityID mints a fresh entity id.
func NewEntityID() EntityID { return EntityID(uuid.New()) }

// NewUpdateID mints a fresh update id.
func NewUpdateID() UpdateID { return UpdateID(uuid.New()) }

// ParseEntityID constructs an EntityID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, malformed, or the
// nil UUID; no other errors are expected.
func ParseEntityID(s string) (EntityID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return EntityID{}, err
	}
	return EntityID(u), nil
}

// ParseUpdateID constructs an UpdateID from external input.
func ParseUpdateID(s string) (UpdateID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UpdateID{}, err
	}
	return UpdateID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(dErrors.CodeInvalidInput, "id must be a valid UUID", err)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}
