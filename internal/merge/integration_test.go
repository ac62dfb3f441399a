//go:build integration

package merge

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	auditstore "trapper/internal/audit/store"
	edgestore "trapper/internal/edge/store"
	entitymodels "trapper/internal/entity/models"
	entitystore "trapper/internal/entity/store"
	identmodels "trapper/internal/identifier/models"
	identstore "trapper/internal/identifier/store"
	"trapper/internal/platform/postgres"
	requestmodels "trapper/internal/request/models"
	requeststore "trapper/internal/request/store"
	id "trapper/pkg/domain"
	"trapper/pkg/testutil/containers"
)

// MergeIntegrationSuite runs the merge executor against a real Postgres so
// the transaction boundary, repoint SQL, and invariant check are exercised
// together rather than through the memory stores.
type MergeIntegrationSuite struct {
	suite.Suite

	ctx context.Context
	pg  *containers.PostgresContainer

	entities    *entitystore.PostgresStore
	edges       *edgestore.PostgresStore
	identifiers *identstore.PostgresStore
	requests    *requeststore.PostgresStore
	svc         *Service
}

func TestMergeIntegrationSuite(t *testing.T) {
	suite.Run(t, new(MergeIntegrationSuite))
}

func (s *MergeIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.Migrate(s.pg.DB))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.entities = entitystore.NewPostgres(s.pg.DB)
	s.edges = edgestore.NewPostgres(s.pg.DB)
	s.requests = requeststore.NewPostgres(s.pg.DB)
	s.identifiers = identstore.NewPostgres(s.pg.DB)
	audit := auditstore.NewPostgres(s.pg.DB)
	s.svc = NewService(s.entities, s.edges, s.identifiers, audit, postgres.NewTxRunner(s.pg.DB), logger)
}

func (s *MergeIntegrationSuite) TearDownSuite() {
	s.pg.Terminate(s.ctx)
}

func (s *MergeIntegrationSuite) newPlace(name string, verified bool) *entitymodels.Entity {
	e := &entitymodels.Entity{
		ID:               id.NewEntityID(),
		Kind:             id.KindPlace,
		DisplayName:      name,
		FormattedAddress: name,
		GeocodeVerified:  verified,
	}
	s.Require().NoError(s.entities.Create(s.ctx, e))
	return e
}

func (s *MergeIntegrationSuite) TestMergeRepointsEverything() {
	winner := s.newPlace("15999 Highway 1", true)
	loser := s.newPlace("15999 Hwy 1", false)
	trapper := &entitymodels.Entity{ID: id.NewEntityID(), Kind: id.KindPerson, DisplayName: "Dana"}
	s.Require().NoError(s.entities.Create(s.ctx, trapper))

	s.Require().NoError(s.edges.AddEdge(s.ctx, edgestore.Edge{
		EntityID:     loser.ID,
		OtherID:      trapper.ID,
		Relationship: "trapping_site",
	}))
	// Winner already carries the same edge; the repoint must drop the
	// loser's copy instead of tripping the primary key.
	s.Require().NoError(s.edges.AddEdge(s.ctx, edgestore.Edge{
		EntityID:     winner.ID,
		OtherID:      trapper.ID,
		Relationship: "trapping_site",
	}))

	req := &requestmodels.Request{
		ID:             id.NewEntityID(),
		CaseNumber:     "TNR-2024-0101",
		Status:         requestmodels.StatusNew,
		PrimaryPlaceID: &loser.ID,
	}
	s.Require().NoError(s.requests.Create(s.ctx, req))
	s.Require().NoError(s.edges.AddRequestLink(s.ctx, edgestore.RequestLink{
		RequestID: req.ID,
		EntityID:  loser.ID,
		Role:      "site",
	}))

	applied, err := s.svc.Merge(s.ctx, winner.ID, loser.ID, "address_duplicate", "integration")
	s.Require().NoError(err)
	s.True(applied)

	count, err := s.edges.CountReferences(s.ctx, loser.ID)
	s.Require().NoError(err)
	s.Zero(count)

	winnerEdges, err := s.edges.EdgesFor(s.ctx, winner.ID)
	s.Require().NoError(err)
	s.Len(winnerEdges, 1)

	stored, err := s.entities.Get(s.ctx, loser.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.MergedInto)
	s.Equal(winner.ID, *stored.MergedInto)

	s.Run("replay is a no-op", func() {
		applied, err := s.svc.Merge(s.ctx, winner.ID, loser.ID, "address_duplicate", "integration")
		s.Require().NoError(err)
		s.False(applied)
	})
}

func (s *MergeIntegrationSuite) TestUpsertBySourceIsIdempotent() {
	e := &entitymodels.Entity{
		ID:             id.NewEntityID(),
		Kind:           id.KindPlace,
		SourceSystem:   "airtable",
		SourceRecordID: "recMergeIT1",
		DisplayName:    "Bodega Bay colony",
	}
	first, inserted, err := s.entities.UpsertBySource(s.ctx, e)
	s.Require().NoError(err)
	s.True(inserted)

	again := &entitymodels.Entity{
		ID:             id.NewEntityID(),
		Kind:           id.KindPlace,
		SourceSystem:   "airtable",
		SourceRecordID: "recMergeIT1",
	}
	second, inserted, err := s.entities.UpsertBySource(s.ctx, again)
	s.Require().NoError(err)
	s.False(inserted)
	s.Equal(first.ID, second.ID)
	s.Equal("Bodega Bay colony", second.DisplayName)
}

func (s *MergeIntegrationSuite) TestMergePersonRepointsIdentifiers() {
	winner := &entitymodels.Entity{ID: id.NewEntityID(), Kind: id.KindPerson, DisplayName: "Jane Doe"}
	loser := &entitymodels.Entity{ID: id.NewEntityID(), Kind: id.KindPerson, DisplayName: "Jane"}
	s.Require().NoError(s.entities.Create(s.ctx, winner))
	s.Require().NoError(s.entities.Create(s.ctx, loser))

	s.Require().NoError(s.identifiers.Insert(s.ctx, &identmodels.Identifier{
		ID:              id.NewEntityID(),
		PersonID:        loser.ID,
		Type:            identmodels.TypeEmail,
		RawValue:        "jane.doe@gmail.com",
		NormalizedValue: "jane.doe@gmail.com",
	}))

	// An unmoved identifier row counts as a live reference.
	count, err := s.edges.CountReferences(s.ctx, loser.ID)
	s.Require().NoError(err)
	s.Equal(1, count)

	applied, err := s.svc.Merge(s.ctx, winner.ID, loser.ID, "identifier_duplicate", "integration")
	s.Require().NoError(err)
	s.True(applied)

	count, err = s.edges.CountReferences(s.ctx, loser.ID)
	s.Require().NoError(err)
	s.Zero(count)

	owner, err := s.identifiers.FindOwner(s.ctx, identmodels.TypeEmail, "jane.doe@gmail.com")
	s.Require().NoError(err)
	s.Equal(winner.ID, owner.PersonID)
}
