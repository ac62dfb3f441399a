package merge

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	auditmodels "trapper/internal/audit/models"
	edgestore "trapper/internal/edge/store"
	entitymodels "trapper/internal/entity/models"
	entitystore "trapper/internal/entity/store"
	identstore "trapper/internal/identifier/store"
	"trapper/internal/merge/mocks"
	id "trapper/pkg/domain"
	dErrors "trapper/pkg/domain-errors"
)

// Verifies the audit boundary contract: entry contents on success, and that
// an audit failure aborts the merge before the loser is tombstoned.
type AuditBoundarySuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockAudit *mocks.MockAuditLog
	entities  *entitystore.MemoryStore
	service   *Service
}

func (s *AuditBoundarySuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockAudit = mocks.NewMockAuditLog(s.ctrl)
	s.entities = entitystore.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(s.entities, edgestore.NewMemory(), identstore.NewMemory(), s.mockAudit, passthroughTx{}, logger)
}

func (s *AuditBoundarySuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestAuditBoundarySuite(t *testing.T) {
	suite.Run(t, new(AuditBoundarySuite))
}

func (s *AuditBoundarySuite) seed(name string) *entitymodels.Entity {
	e := &entitymodels.Entity{ID: id.NewEntityID(), Kind: id.KindPlace, DisplayName: name}
	s.Require().NoError(s.entities.Create(context.Background(), e))
	return e
}

func (s *AuditBoundarySuite) TestMerge_EmitsOneMergeEntry() {
	ctx := context.Background()
	winner := s.seed("Winner")
	loser := s.seed("Loser")

	s.mockAudit.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry *auditmodels.Entry) error {
			s.Equal(auditmodels.ChangeMerge, entry.ChangeType)
			s.Equal(loser.ID, entry.EntityID)
			s.Equal("merged_into", entry.Field)
			s.Equal(winner.ID.String(), entry.NewValue)
			s.Equal("scheduler", entry.Actor)
			return nil
		})

	applied, err := s.service.Merge(ctx, winner.ID, loser.ID, "duplicate", "scheduler")
	s.Require().NoError(err)
	s.True(applied)
}

func (s *AuditBoundarySuite) TestMerge_AuditFailureAbortsBeforeTombstone() {
	ctx := context.Background()
	winner := s.seed("Winner")
	loser := s.seed("Loser")

	s.mockAudit.EXPECT().
		Append(gomock.Any(), gomock.Any()).
		Return(dErrors.New(dErrors.CodeInternal, "audit unavailable"))

	applied, err := s.service.Merge(ctx, winner.ID, loser.ID, "duplicate", "scheduler")
	s.Require().Error(err)
	s.False(applied)

	stored, err := s.entities.Get(ctx, loser.ID)
	s.Require().NoError(err)
	s.Nil(stored.MergedInto, "loser must not be tombstoned when the audit write fails")
}
