package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trapper/internal/identifier/models"
	"trapper/internal/identifier/store"
	id "trapper/pkg/domain"
	dErrors "trapper/pkg/domain-errors"
)

// trackingTx runs the unit of work directly; memory stores have no
// transactions to join. It records whether a unit of work is in flight so
// tests can assert that store writes happen inside one.
type trackingTx struct {
	inTx bool
	runs int
}

func (t *trackingTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.runs++
	t.inTx = true
	defer func() { t.inTx = false }()
	return fn(ctx)
}

type ServiceSuite struct {
	suite.Suite
	store   *store.MemoryStore
	tx      *trackingTx
	service *Service
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewMemory()
	s.tx = &trackingTx{}
	s.service = NewService(s.store, s.tx, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) TestLogUpdate_CosmeticChangeIsNoOp() {
	ctx := context.Background()

	updateID, err := s.service.LogUpdate(ctx, LogUpdateInput{
		PersonID: id.NewEntityID(),
		Type:     models.TypeEmail,
		OldValue: "Jane@Example.COM ",
		NewValue: "jane@example.com",
		Actor:    "ops",
	})
	s.Require().NoError(err)
	s.Nil(updateID, "cosmetic change must not write an update record")

	pending, err := s.store.ListPendingUpdates(ctx, 10)
	s.Require().NoError(err)
	s.Empty(pending)
}

func (s *ServiceSuite) TestLogUpdate_PhoneNormalization() {
	ctx := context.Background()
	person := id.NewEntityID()

	updateID, err := s.service.LogUpdate(ctx, LogUpdateInput{
		PersonID: person,
		Type:     models.TypePhone,
		OldValue: "(707) 555-0101",
		NewValue: "1-707-555-0199",
		Source:   "airtable",
		Actor:    "ops",
	})
	s.Require().NoError(err)
	s.Require().NotNil(updateID)

	rec, err := s.store.GetUpdate(ctx, *updateID)
	s.Require().NoError(err)
	s.Equal("7075550101", rec.OldNormalized)
	s.Equal("7075550199", rec.NewNormalized)
	s.False(rec.WasApplied)
}

func (s *ServiceSuite) TestApplyUpdate_InsertsAndUpdates() {
	ctx := context.Background()
	person := id.NewEntityID()

	updateID, err := s.service.LogUpdate(ctx, LogUpdateInput{
		PersonID: person,
		Type:     models.TypeEmail,
		NewValue: "jane@example.com",
		Actor:    "ops",
	})
	s.Require().NoError(err)
	s.Require().NotNil(updateID)

	applied, err := s.service.ApplyUpdate(ctx, *updateID, "ops")
	s.Require().NoError(err)
	s.True(applied)

	owner, err := s.store.FindOwner(ctx, models.TypeEmail, "jane@example.com")
	s.Require().NoError(err)
	s.Equal(person, owner.PersonID)

	// A second change of the same type updates the row in place.
	updateID, err = s.service.LogUpdate(ctx, LogUpdateInput{
		PersonID: person,
		Type:     models.TypeEmail,
		OldValue: "jane@example.com",
		NewValue: "jane.doe@example.com",
		Actor:    "ops",
	})
	s.Require().NoError(err)
	s.Require().NotNil(updateID)

	applied, err = s.service.ApplyUpdate(ctx, *updateID, "ops")
	s.Require().NoError(err)
	s.True(applied)

	idents, err := s.store.ListByPerson(ctx, person)
	s.Require().NoError(err)
	s.Require().Len(idents, 1)
	s.Equal("jane.doe@example.com", idents[0].NormalizedValue)
}

func (s *ServiceSuite) TestApplyUpdate_BlockedByOtherOwner() {
	ctx := context.Background()
	owner := id.NewEntityID()
	claimant := id.NewEntityID()

	s.Require().NoError(s.store.Insert(ctx, &models.Identifier{
		ID:              id.NewEntityID(),
		PersonID:        owner,
		Type:            models.TypeEmail,
		RawValue:        "shared@example.com",
		NormalizedValue: "shared@example.com",
	}))

	updateID, err := s.service.LogUpdate(ctx, LogUpdateInput{
		PersonID: claimant,
		Type:     models.TypeEmail,
		NewValue: "shared@example.com",
		Actor:    "ops",
	})
	s.Require().NoError(err)
	s.Require().NotNil(updateID)

	applied, err := s.service.ApplyUpdate(ctx, *updateID, "ops")
	s.Require().NoError(err)
	s.False(applied, "apply must never steal another person's identifier")

	rec, err := s.store.GetUpdate(ctx, *updateID)
	s.Require().NoError(err)
	s.False(rec.WasApplied)
	s.Contains(rec.ApplyNotes, "blocked")
	s.NotNil(rec.AppliedAt)

	// The owner keeps the value.
	stored, err := s.store.FindOwner(ctx, models.TypeEmail, "shared@example.com")
	s.Require().NoError(err)
	s.Equal(owner, stored.PersonID)
}

func (s *ServiceSuite) TestApplyUpdate_Reinvocation() {
	ctx := context.Background()
	person := id.NewEntityID()

	updateID, err := s.service.LogUpdate(ctx, LogUpdateInput{
		PersonID: person,
		Type:     models.TypePhone,
		NewValue: "707-555-0101",
		Actor:    "ops",
	})
	s.Require().NoError(err)
	s.Require().NotNil(updateID)

	applied, err := s.service.ApplyUpdate(ctx, *updateID, "ops")
	s.Require().NoError(err)
	s.True(applied)

	applied, err = s.service.ApplyUpdate(ctx, *updateID, "ops")
	s.Require().NoError(err)
	s.False(applied, "second apply is a no-op")
}

func (s *ServiceSuite) TestApplyUpdate_NotFound() {
	_, err := s.service.ApplyUpdate(context.Background(), id.NewUpdateID(), "ops")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestLogUpdate_RejectsUnusableValue() {
	_, err := s.service.LogUpdate(context.Background(), LogUpdateInput{
		PersonID: id.NewEntityID(),
		Type:     models.TypePhone,
		NewValue: "555",
		Actor:    "ops",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

// markFailStore lets the identifier write through and then fails the apply
// mark, recording whether each write ran inside a unit of work.
type markFailStore struct {
	*store.MemoryStore
	tx         *trackingTx
	insertInTx bool
	markInTx   bool
}

func (f *markFailStore) Insert(ctx context.Context, ident *models.Identifier) error {
	f.insertInTx = f.tx.inTx
	return f.MemoryStore.Insert(ctx, ident)
}

func (f *markFailStore) MarkUpdateApplied(ctx context.Context, updateID id.UpdateID, applied bool, notes string, at time.Time) error {
	f.markInTx = f.tx.inTx
	return errors.New("connection reset")
}

func (s *ServiceSuite) TestApplyUpdate_MarkFailureStaysInsideTransaction() {
	ctx := context.Background()
	person := id.NewEntityID()

	updateID, err := s.service.LogUpdate(ctx, LogUpdateInput{
		PersonID: person,
		Type:     models.TypeEmail,
		NewValue: "jane@example.com",
		Actor:    "ops",
	})
	s.Require().NoError(err)
	s.Require().NotNil(updateID)

	fail := &markFailStore{MemoryStore: s.store, tx: s.tx}
	svc := NewService(fail, s.tx, slog.New(slog.NewTextHandler(io.Discard, nil)))

	applied, err := svc.ApplyUpdate(ctx, *updateID, "ops")
	s.Require().Error(err)
	s.False(applied)

	// Both writes ran in the same unit of work, so a real transaction
	// runner rolls the identifier insert back along with the failed mark
	// and the update still reads as pending.
	s.Equal(1, s.tx.runs)
	s.True(fail.insertInTx)
	s.True(fail.markInTx)
}
