package service

import (
	"context"
	"errors"
	"time"

	"trapper/internal/entity/models"
	"trapper/internal/entity/store"
	dErrors "trapper/pkg/domain-errors"
	id "trapper/pkg/domain"
	"trapper/pkg/normalize"
)

// maxChainDepth bounds merged_into traversal. Merges keep pointers at a
// single hop, so anything deeper than a few links means corrupt data.
const maxChainDepth = 16

type Store interface {
	Create(ctx context.Context, e *models.Entity) error
	Get(ctx context.Context, entityID id.EntityID) (*models.Entity, error)
	UpsertBySource(ctx context.Context, e *models.Entity) (*models.Entity, bool, error)
	Update(ctx context.Context, e *models.Entity) error
	ListActive(ctx context.Context, kind id.Kind, limit, offset int) ([]*models.Entity, error)
}

// Service owns entity lifecycle reads and source-record ingestion.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// IngestInput is one source record to be coalesced into an entity.
type IngestInput struct {
	Kind             id.Kind
	SourceSystem     string
	SourceRecordID   string
	DisplayName      string
	FormattedAddress string
	Latitude         *float64
	Longitude        *float64
	GeocodeVerified  bool
	Microchip        string
}

// Ingest upserts a source record keyed by (source_system, source_record_id).
// Re-sending the same record never creates a duplicate; non-empty incoming
// fields overwrite, absent ones leave stored values untouched.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (*models.Entity, bool, error) {
	if !in.Kind.IsValid() {
		return nil, false, dErrors.New(dErrors.CodeValidation, "invalid entity kind: "+string(in.Kind))
	}
	if in.SourceSystem == "" || in.SourceRecordID == "" {
		return nil, false, dErrors.New(dErrors.CodeValidation, "source_system and source_record_id are required")
	}
	e := &models.Entity{
		ID:               id.NewEntityID(),
		Kind:             in.Kind,
		SourceSystem:     in.SourceSystem,
		SourceRecordID:   in.SourceRecordID,
		DisplayName:      in.DisplayName,
		FormattedAddress: in.FormattedAddress,
		AddressKey:       normalize.Address(in.FormattedAddress),
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		GeocodeVerified:  in.GeocodeVerified,
		Microchip:        in.Microchip,
	}
	stored, created, err := s.store.UpsertBySource(ctx, e)
	if err != nil {
		return nil, false, dErrors.Wrap(dErrors.CodeInternal, "ingest entity", err)
	}
	return stored, created, nil
}

func (s *Service) Get(ctx context.Context, entityID id.EntityID) (*models.Entity, error) {
	e, err := s.store.Get(ctx, entityID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "entity not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "get entity", err)
	}
	return e, nil
}

// ResolveLiving follows merged_into pointers from the given entity to the
// record that currently holds its data. Every hop is returned so callers can
// see the path that was taken.
func (s *Service) ResolveLiving(ctx context.Context, entityID id.EntityID) (*models.Entity, []id.EntityID, error) {
	var path []id.EntityID
	visited := map[id.EntityID]bool{}

	current, err := s.Get(ctx, entityID)
	if err != nil {
		return nil, nil, err
	}
	for depth := 0; current.IsTombstone(); depth++ {
		if depth >= maxChainDepth {
			return nil, nil, dErrors.New(dErrors.CodeInvariantViolation, "merge chain exceeds maximum depth")
		}
		if visited[current.ID] {
			return nil, nil, dErrors.New(dErrors.CodeInvariantViolation, "merge chain contains a cycle")
		}
		visited[current.ID] = true
		path = append(path, current.ID)

		next, err := s.Get(ctx, *current.MergedInto)
		if err != nil {
			return nil, nil, err
		}
		current = next
	}
	return current, path, nil
}

func (s *Service) ListActive(ctx context.Context, kind id.Kind, limit, offset int) ([]*models.Entity, error) {
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid entity kind: "+string(kind))
	}
	out, err := s.store.ListActive(ctx, kind, limit, offset)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list entities", err)
	}
	return out, nil
}

// Touch bumps updated_at on an entity without changing its fields. It exists
// so corrections that only write an audit row still move the entity forward.
func (s *Service) Touch(ctx context.Context, entityID id.EntityID) error {
	e, err := s.Get(ctx, entityID)
	if err != nil {
		return err
	}
	e.UpdatedAt = time.Now().UTC()
	if err := s.store.Update(ctx, e); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "touch entity", err)
	}
	return nil
}
