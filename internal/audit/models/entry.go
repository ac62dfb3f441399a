package models

import (
	"time"

	id "trapper/pkg/domain"
)

type ChangeType string

const (
	ChangeMerge             ChangeType = "merge"
	ChangeClassification    ChangeType = "classification"
	ChangeIdentifierApplied ChangeType = "identifier_applied"
	ChangeStatusReversion   ChangeType = "status_reversion"
)

// Entry is one append-only correction record. Entries are never updated or
// deleted after being written.
type Entry struct {
	ID         id.EntityID
	EntityType string
	EntityID   id.EntityID
	ChangeType ChangeType
	Field      string
	OldValue   string
	NewValue   string
	Reason     string
	Actor      string
	CreatedAt  time.Time
}

// OutboxMessage is one pending event destined for the audit topic.
type OutboxMessage struct {
	ID          id.EntityID
	TopicKey    string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}
