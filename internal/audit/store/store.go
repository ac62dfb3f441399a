package store

import (
	"context"
	"time"

	"trapper/internal/audit/models"
	id "trapper/pkg/domain"
	"trapper/pkg/platform/sentinel"
)

var ErrNotFound = sentinel.ErrNotFound

// Store appends correction entries and their outbox messages. Append writes
// both in the caller's transaction so an audit entry and its event cannot
// diverge.
type Store interface {
	Append(ctx context.Context, entry *models.Entry) error
	ListByEntity(ctx context.Context, entityType string, entityID id.EntityID) ([]*models.Entry, error)

	ListUnpublished(ctx context.Context, limit int) ([]*models.OutboxMessage, error)
	MarkPublished(ctx context.Context, messageID id.EntityID, at time.Time) error
}
