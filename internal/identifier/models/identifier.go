package models

import (
	"time"

	id "trapper/pkg/domain"
)

type IdentifierType string

const (
	TypeEmail IdentifierType = "email"
	TypePhone IdentifierType = "phone"
)

func (t IdentifierType) IsValid() bool {
	return t == TypeEmail || t == TypePhone
}

// Identifier is a typed contact value attached to a person. At most one
// active person owns a given (type, normalized_value) pair.
type Identifier struct {
	ID              id.EntityID
	PersonID        id.EntityID
	Type            IdentifierType
	RawValue        string
	NormalizedValue string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UpdateRecord is one proposed identifier change. Logging never mutates
// identifier state; only apply does, and only when the new value is free.
type UpdateRecord struct {
	ID            id.UpdateID
	PersonID      id.EntityID
	Type          IdentifierType
	OldRaw        string
	OldNormalized string
	NewRaw        string
	NewNormalized string
	Source        string
	Actor         string
	Reason        string
	WasApplied    bool
	ApplyNotes    string
	AppliedAt     *time.Time
	CreatedAt     time.Time
}
