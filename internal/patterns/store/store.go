package store

import (
	"context"

	"trapper/internal/patterns/models"
	"trapper/pkg/platform/sentinel"
)

var ErrNotFound = sentinel.ErrNotFound

type Store interface {
	Create(ctx context.Context, p *models.Pattern) error
	// ListActive returns active patterns in ascending priority order so the
	// first match wins deterministically.
	ListActive(ctx context.Context) ([]*models.Pattern, error)
	Deactivate(ctx context.Context, patternID string) error
}
