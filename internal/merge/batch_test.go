package merge

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	auditstore "trapper/internal/audit/store"
	"trapper/internal/classify"
	edgestore "trapper/internal/edge/store"
	entitymodels "trapper/internal/entity/models"
	entitystore "trapper/internal/entity/store"
	identstore "trapper/internal/identifier/store"
	"trapper/internal/match"
	"trapper/internal/patterns/registry"
	patstore "trapper/internal/patterns/store"
	id "trapper/pkg/domain"
)

type BatchSuite struct {
	suite.Suite
	entities *entitystore.MemoryStore
	driver   *BatchDriver
}

func (s *BatchSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.entities = entitystore.NewMemory()
	identifiers := identstore.NewMemory()
	edges := edgestore.NewMemory()
	reg := registry.New(patstore.NewMemory(), nil, 0, logger)

	merger := NewService(s.entities, edges, identifiers, auditstore.NewMemory(), passthroughTx{}, logger)
	detector := match.NewDetector(s.entities, identifiers, reg, 100, logger)
	classifier := classify.NewService(s.entities, identifiers, reg, logger, 0)
	picker := match.NewSelector(identifiers, classifier, edges)
	s.driver = NewBatchDriver(detector, s.entities, merger, picker, nil, 10, logger)
}

func TestBatchSuite(t *testing.T) {
	suite.Run(t, new(BatchSuite))
}

func (s *BatchSuite) seedAt(name, address string, lat, lng float64, mod func(*entitymodels.Entity)) *entitymodels.Entity {
	e := &entitymodels.Entity{
		ID:               id.NewEntityID(),
		Kind:             id.KindPlace,
		DisplayName:      name,
		FormattedAddress: address,
		Latitude:         &lat,
		Longitude:        &lng,
	}
	if mod != nil {
		mod(e)
	}
	s.Require().NoError(s.entities.Create(context.Background(), e))
	return e
}

func (s *BatchSuite) TestRun_MergesCoordinateDuplicates() {
	ctx := context.Background()

	// Three stacked places within meters of each other: one verified
	// geocode, two bare pins. The batch must collapse all onto the
	// verified one even though the second pair only becomes actionable
	// after the first merge consumes a side.
	verified := s.seedAt("P2", "15999 Coast Hwy, Valley Ford, CA 94972", 38.3100, -122.9600, func(e *entitymodels.Entity) {
		e.GeocodeVerified = true
	})
	p1 := s.seedAt("P1", "15999 Hwy 1", 38.31005, -122.9600, nil)
	p3 := s.seedAt("P3", "15999", 38.31010, -122.9600, nil)

	merged, err := s.driver.Run(ctx, id.KindPlace, 0.9)
	s.Require().NoError(err)
	s.Equal(2, merged)

	survivors, err := s.entities.ListActive(ctx, id.KindPlace, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(survivors, 1)
	s.Equal(verified.ID, survivors[0].ID)

	// Losers point at the winner in a single hop.
	for _, loserID := range []id.EntityID{p1.ID, p3.ID} {
		stored, err := s.entities.Get(ctx, loserID)
		s.Require().NoError(err)
		s.Require().NotNil(stored.MergedInto)
		s.Equal(verified.ID, *stored.MergedInto)
	}
}

func (s *BatchSuite) TestRun_ConsumedSideSkippedSafely() {
	ctx := context.Background()

	// Two pairs sharing a middle entity: (A,B) and (B,C). Once B loses to
	// A, the (B,C) pair must be skipped or resolved against the living
	// record, never merged into a tombstone.
	a := s.seedAt("A", "123 Main St, Town, CA", 38.3100, -122.9600, func(e *entitymodels.Entity) {
		e.GeocodeVerified = true
	})
	s.seedAt("B", "123 Main St", 38.31003, -122.9600, nil)
	s.seedAt("C", "123 Main", 38.31006, -122.9600, nil)

	merged, err := s.driver.Run(ctx, id.KindPlace, 0.9)
	s.Require().NoError(err)
	s.Equal(2, merged)

	survivors, err := s.entities.ListActive(ctx, id.KindPlace, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(survivors, 1)
	s.Equal(a.ID, survivors[0].ID)
}

func (s *BatchSuite) TestRun_ThresholdFiltersPairs() {
	ctx := context.Background()

	s.seedAt("A", "123 Main St", 38.3100, -122.9600, nil)
	s.seedAt("B", "123 Main Street", 38.31003, -122.9600, nil)

	merged, err := s.driver.Run(ctx, id.KindPlace, 0.99)
	s.Require().NoError(err)
	s.Zero(merged, "pairs below the requested threshold are left alone")
}

func (s *BatchSuite) TestRun_EmptyKindIsClean() {
	merged, err := s.driver.Run(context.Background(), id.KindAnimal, 0.9)
	s.Require().NoError(err)
	s.Zero(merged)
}
