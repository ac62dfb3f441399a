package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"trapper/internal/request/models"
	"trapper/internal/request/store"
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

func (s *ServiceSuite) TestClearAssignments_StatusFallback() {
	ctx := context.Background()

	cases := []struct {
		name   string
		reason models.ArchiveReason
		want   models.Status
	}{
		{"duplicate stays closed", models.ArchiveDuplicate, models.StatusClosed},
		{"denied stays closed", models.ArchiveDenied, models.StatusClosed},
		{"referral stays resolved", models.ArchiveReferredElsewhere, models.StatusResolved},
		{"no reason reopens intake", "", models.StatusNew},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			person := id.NewEntityID()
			req := &models.Request{
				ID:              id.NewEntityID(),
				CaseNumber:      "C-100",
				Status:          models.StatusInProgress,
				ArchiveReason:   tc.reason,
				PrimaryPersonID: &person,
			}
			s.Require().NoError(s.store.Create(ctx, req))

			got, err := s.service.ClearAssignments(ctx, req.ID)
			s.Require().NoError(err)
			s.Equal(tc.want, got)

			stored, err := s.store.Get(ctx, req.ID)
			s.Require().NoError(err)
			s.Equal(tc.want, stored.Status)
			s.Nil(stored.PrimaryPersonID)
			s.Nil(stored.PrimaryPlaceID)
		})
	}
}

func (s *ServiceSuite) TestClearAssignments_NotFound() {
	_, err := s.service.ClearAssignments(context.Background(), id.NewEntityID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestCoerceArchiveReason() {
	s.Equal(models.ArchiveDuplicate, models.CoerceArchiveReason("Duplicate  Request"))
	s.Equal(models.ArchiveReferredElsewhere, models.CoerceArchiveReason("referred elsewhere"))
	s.Equal(models.ArchiveReason(""), models.CoerceArchiveReason("complete / closed"))
}
