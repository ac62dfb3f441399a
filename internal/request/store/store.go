package store

import (
	"context"

	"trapper/internal/request/models"
	id "trapper/pkg/domain"
	"trapper/pkg/platform/sentinel"
)

var ErrNotFound = sentinel.ErrNotFound

type Store interface {
	Create(ctx context.Context, r *models.Request) error
	Get(ctx context.Context, requestID id.EntityID) (*models.Request, error)
	SetStatus(ctx context.Context, requestID id.EntityID, status models.Status) error
	ClearPrimaries(ctx context.Context, requestID id.EntityID) error
	ListByPrimary(ctx context.Context, entityID id.EntityID) ([]*models.Request, error)
}
