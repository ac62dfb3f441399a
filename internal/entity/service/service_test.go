package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trapper/internal/entity/models"
	"trapper/internal/entity/store"
	id "trapper/pkg/domain"
	dErrors "trapper/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	store   *store.MemoryStore
	service *Service
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewMemory()
	s.service = NewService(s.store)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) TestIngest_Idempotent() {
	ctx := context.Background()

	in := IngestInput{
		Kind:             id.KindPlace,
		SourceSystem:     "airtable",
		SourceRecordID:   "rec123",
		DisplayName:      "Warehouse Colony",
		FormattedAddress: "123 Main Street Apt 4",
	}

	first, created, err := s.service.Ingest(ctx, in)
	s.Require().NoError(err)
	s.True(created)
	s.Equal("123 main st unit 4", first.AddressKey)

	in.DisplayName = ""
	in.FormattedAddress = ""
	second, created, err := s.service.Ingest(ctx, in)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first.ID, second.ID)
	s.Equal("Warehouse Colony", second.DisplayName, "empty incoming fields must not clobber stored values")
	s.Equal("123 main st unit 4", second.AddressKey)
}

func (s *ServiceSuite) TestIngest_Validation() {
	ctx := context.Background()

	_, _, err := s.service.Ingest(ctx, IngestInput{Kind: "vehicle", SourceSystem: "a", SourceRecordID: "1"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, _, err = s.service.Ingest(ctx, IngestInput{Kind: id.KindPerson})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestResolveLiving_FollowsChain() {
	ctx := context.Background()

	winner := s.seedPlace("Living")
	mid := s.seedPlace("Mid")
	loser := s.seedPlace("Loser")

	now := time.Now().UTC()
	s.Require().NoError(s.store.Tombstone(ctx, mid.ID, winner.ID, "duplicate", now))
	s.Require().NoError(s.store.Tombstone(ctx, loser.ID, mid.ID, "duplicate", now))

	living, path, err := s.service.ResolveLiving(ctx, loser.ID)
	s.Require().NoError(err)
	s.Equal(winner.ID, living.ID)
	s.Equal([]id.EntityID{loser.ID, mid.ID}, path)

	living, path, err = s.service.ResolveLiving(ctx, winner.ID)
	s.Require().NoError(err)
	s.Equal(winner.ID, living.ID)
	s.Empty(path)
}

func (s *ServiceSuite) TestResolveLiving_DetectsCycle() {
	ctx := context.Background()

	a := s.seedPlace("A")
	b := s.seedPlace("B")

	now := time.Now().UTC()
	s.Require().NoError(s.store.Tombstone(ctx, a.ID, b.ID, "duplicate", now))
	s.Require().NoError(s.store.Tombstone(ctx, b.ID, a.ID, "duplicate", now))

	_, _, err := s.service.ResolveLiving(ctx, a.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ServiceSuite) TestResolveLiving_NotFound() {
	_, _, err := s.service.ResolveLiving(context.Background(), id.NewEntityID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) seedPlace(name string) *models.Entity {
	e := &models.Entity{
		ID:          id.NewEntityID(),
		Kind:        id.KindPlace,
		DisplayName: name,
	}
	s.Require().NoError(s.store.Create(context.Background(), e))
	return e
}
