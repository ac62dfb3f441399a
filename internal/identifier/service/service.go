package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"trapper/internal/identifier/models"
	"trapper/internal/identifier/store"
	id "trapper/pkg/domain"
	dErrors "trapper/pkg/domain-errors"
	"trapper/pkg/normalize"
)

type Store interface {
	FindOwner(ctx context.Context, idType models.IdentifierType, normalized string) (*models.Identifier, error)
	ListByPerson(ctx context.Context, personID id.EntityID) ([]*models.Identifier, error)
	Insert(ctx context.Context, ident *models.Identifier) error
	UpdateValue(ctx context.Context, identID id.EntityID, raw, normalized string) error
	CreateUpdate(ctx context.Context, rec *models.UpdateRecord) error
	GetUpdate(ctx context.Context, updateID id.UpdateID) (*models.UpdateRecord, error)
	MarkUpdateApplied(ctx context.Context, updateID id.UpdateID, applied bool, notes string, at time.Time) error
	ListPendingUpdates(ctx context.Context, limit int) ([]*models.UpdateRecord, error)
}

// TxRunner wraps a unit of work in one atomic transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service runs the two-phase identifier update trail: log a proposed change
// without touching state, then apply it subject to the global uniqueness
// invariant.
type Service struct {
	store  Store
	tx     TxRunner
	logger *slog.Logger
}

func NewService(store Store, tx TxRunner, logger *slog.Logger) *Service {
	return &Service{store: store, tx: tx, logger: logger}
}

// LogUpdateInput describes one proposed identifier change.
type LogUpdateInput struct {
	PersonID id.EntityID
	Type     models.IdentifierType
	OldValue string
	NewValue string
	Source   string
	Actor    string
	Reason   string
}

// LogUpdate records a proposed change. When the old and new values normalize
// to the same thing the change is cosmetic and nothing is written; the
// returned pointer is nil in that case.
func (s *Service) LogUpdate(ctx context.Context, in LogUpdateInput) (*id.UpdateID, error) {
	if !in.Type.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid identifier type: "+string(in.Type))
	}
	if in.PersonID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "person id is required")
	}

	oldNorm := Normalize(in.Type, in.OldValue)
	newNorm := Normalize(in.Type, in.NewValue)
	if newNorm == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "new value does not normalize to a usable identifier")
	}
	if oldNorm == newNorm {
		return nil, nil
	}

	rec := &models.UpdateRecord{
		ID:            id.NewUpdateID(),
		PersonID:      in.PersonID,
		Type:          in.Type,
		OldRaw:        in.OldValue,
		OldNormalized: oldNorm,
		NewRaw:        in.NewValue,
		NewNormalized: newNorm,
		Source:        in.Source,
		Actor:         in.Actor,
		Reason:        in.Reason,
	}
	if err := s.store.CreateUpdate(ctx, rec); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "log identifier update", err)
	}
	s.logger.Info("identifier update logged",
		"update_id", rec.ID.String(),
		"person_id", in.PersonID.String(),
		"type", string(in.Type))
	updateID := rec.ID
	return &updateID, nil
}

// ApplyUpdate commits a previously logged change in one transaction: the
// ownership re-check, the identifier write, and the apply mark all land or
// none do. It returns false without error when the update was already
// applied or when the new value is owned by a different person; the
// record's apply notes say which.
func (s *Service) ApplyUpdate(ctx context.Context, updateID id.UpdateID, actor string) (bool, error) {
	var applied bool
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		rec, err := s.store.GetUpdate(ctx, updateID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "identifier update not found")
			}
			return dErrors.Wrap(dErrors.CodeInternal, "load identifier update", err)
		}
		if rec.AppliedAt != nil {
			return nil
		}

		now := time.Now().UTC()

		owner, err := s.store.FindOwner(ctx, rec.Type, rec.NewNormalized)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return dErrors.Wrap(dErrors.CodeInternal, "check identifier owner", err)
		}
		if owner != nil && owner.PersonID != rec.PersonID {
			notes := fmt.Sprintf("blocked: value owned by person %s (actor %s)", owner.PersonID, actor)
			if err := s.store.MarkUpdateApplied(ctx, updateID, false, notes, now); err != nil {
				return dErrors.Wrap(dErrors.CodeInternal, "mark identifier update", err)
			}
			s.logger.Warn("identifier update blocked by conflict",
				"update_id", updateID.String(),
				"owner_id", owner.PersonID.String())
			return nil
		}

		if err := s.commit(ctx, rec); err != nil {
			return err
		}
		notes := fmt.Sprintf("applied by %s", actor)
		if err := s.store.MarkUpdateApplied(ctx, updateID, true, notes, now); err != nil {
			return dErrors.Wrap(dErrors.CodeInternal, "mark identifier update", err)
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (s *Service) commit(ctx context.Context, rec *models.UpdateRecord) error {
	existing, err := s.store.ListByPerson(ctx, rec.PersonID)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "list person identifiers", err)
	}
	for _, ident := range existing {
		if ident.Type == rec.Type {
			if err := s.store.UpdateValue(ctx, ident.ID, rec.NewRaw, rec.NewNormalized); err != nil {
				return dErrors.Wrap(dErrors.CodeInternal, "update identifier value", err)
			}
			return nil
		}
	}
	ident := &models.Identifier{
		ID:              id.NewEntityID(),
		PersonID:        rec.PersonID,
		Type:            rec.Type,
		RawValue:        rec.NewRaw,
		NormalizedValue: rec.NewNormalized,
	}
	err = s.store.Insert(ctx, ident)
	if errors.Is(err, store.ErrConflict) {
		// The exact value already exists for this person; nothing to do.
		return nil
	}
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "insert identifier", err)
	}
	return nil
}

// Owner reports which person currently holds (type, normalized value).
func (s *Service) Owner(ctx context.Context, idType models.IdentifierType, value string) (*models.Identifier, error) {
	norm := Normalize(idType, value)
	if norm == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "value does not normalize to a usable identifier")
	}
	ident, err := s.store.FindOwner(ctx, idType, norm)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "identifier not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "find identifier owner", err)
	}
	return ident, nil
}

func (s *Service) PendingUpdates(ctx context.Context, limit int) ([]*models.UpdateRecord, error) {
	recs, err := s.store.ListPendingUpdates(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list pending updates", err)
	}
	return recs, nil
}

// Normalize maps a raw identifier value to its canonical comparison form.
func Normalize(idType models.IdentifierType, raw string) string {
	switch idType {
	case models.TypeEmail:
		return normalize.Email(raw)
	case models.TypePhone:
		return normalize.Phone(raw)
	}
	return ""
}
