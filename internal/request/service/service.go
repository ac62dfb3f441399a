package service

import (
	"context"
	"errors"

	"trapper/internal/request/models"
	"trapper/internal/request/store"
	id "trapper/pkg/domain"
	dErrors "trapper/pkg/domain-errors"
)

type Store interface {
	Get(ctx context.Context, requestID id.EntityID) (*models.Request, error)
	SetStatus(ctx context.Context, requestID id.EntityID, status models.Status) error
	ClearPrimaries(ctx context.Context, requestID id.EntityID) error
}

// Service manages case record state transitions.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// ClearAssignments removes a request's primary references and settles its
// status. A terminal archive reason keeps its terminal status (duplicate and
// denied close the case, referred_elsewhere resolves it); without one the
// request goes back to the intake default so it gets looked at again.
func (s *Service) ClearAssignments(ctx context.Context, requestID id.EntityID) (models.Status, error) {
	r, err := s.store.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "request not found")
		}
		return "", dErrors.Wrap(dErrors.CodeInternal, "get request", err)
	}

	if err := s.store.ClearPrimaries(ctx, requestID); err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "clear request primaries", err)
	}

	next := models.FallbackStatus(r.ArchiveReason)
	if err := s.store.SetStatus(ctx, requestID, next); err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "set request status", err)
	}
	return next, nil
}
