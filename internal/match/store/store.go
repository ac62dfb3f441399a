package store

import (
	"context"

	"trapper/internal/match/models"
)

type Store interface {
	Upsert(ctx context.Context, c *models.ReviewCandidate) error
	ListBySource(ctx context.Context, sourceSystem, sourceRecordID string) ([]*models.ReviewCandidate, error)
}
