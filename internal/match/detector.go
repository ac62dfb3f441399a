package match

import (
	"context"
	"errors"
	"log/slog"

	entitymodels "trapper/internal/entity/models"
	entitystore "trapper/internal/entity/store"
	identmodels "trapper/internal/identifier/models"
	identstore "trapper/internal/identifier/store"
	"trapper/internal/match/models"
	"trapper/internal/patterns/registry"
	id "trapper/pkg/domain"
	dErrors "trapper/pkg/domain-errors"
	"trapper/pkg/extract"
)

const (
	confidenceCoordinate = 0.95
	confidenceAddress    = 0.90
	confidenceIdentifier = 0.90
)

type EntityStore interface {
	Get(ctx context.Context, entityID id.EntityID) (*entitymodels.Entity, error)
	ListActive(ctx context.Context, kind id.Kind, limit, offset int) ([]*entitymodels.Entity, error)
	AddressKeyCollisions(ctx context.Context, kind id.Kind, limit int) ([]entitystore.KeyCollision, error)
	CoordinateNeighbors(ctx context.Context, kind id.Kind, limit int) ([]entitystore.KeyCollision, error)
	MicrochipCollisions(ctx context.Context, kind id.Kind, limit int) ([]entitystore.KeyCollision, error)
	FindByMicrochip(ctx context.Context, kind id.Kind, chip string) (*entitymodels.Entity, error)
}

type IdentifierStore interface {
	FindOwner(ctx context.Context, idType identmodels.IdentifierType, normalized string) (*identmodels.Identifier, error)
	ListPendingUpdates(ctx context.Context, limit int) ([]*identmodels.UpdateRecord, error)
}

type Registry interface {
	Evaluate(ctx context.Context, value string) (*registry.Match, error)
}

// Detector finds candidate duplicate pairs among active entities of one
// kind. Pair generation always goes through a blocking key (coordinate
// bucket, address key, identifier value), never a full cross product.
type Detector struct {
	entities        EntityStore
	identifiers     IdentifierStore
	registry        Registry
	extractor       *extract.Extractor
	logger          *slog.Logger
	thresholdMeters float64
	candidateLimit  int
}

func NewDetector(entities EntityStore, identifiers IdentifierStore, reg Registry, thresholdMeters float64, logger *slog.Logger) *Detector {
	if thresholdMeters <= 0 {
		thresholdMeters = 100
	}
	return &Detector{
		entities:        entities,
		identifiers:     identifiers,
		registry:        reg,
		extractor:       extract.New(),
		logger:          logger,
		thresholdMeters: thresholdMeters,
		candidateLimit:  5000,
	}
}

// Detect returns deduplicated candidate pairs for one kind, highest
// confidence basis first per pair.
func (d *Detector) Detect(ctx context.Context, kind id.Kind) ([]models.Pair, error) {
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid entity kind: "+string(kind))
	}

	var pairs []models.Pair
	seen := make(map[[2]id.EntityID]bool)
	add := func(p models.Pair) {
		p = p.Ordered()
		key := [2]id.EntityID{p.AID, p.BID}
		if seen[key] {
			return
		}
		seen[key] = true
		pairs = append(pairs, p)
	}

	coord, err := d.coordinatePairs(ctx, kind)
	if err != nil {
		return nil, err
	}
	for _, p := range coord {
		add(p)
	}

	addr, err := d.addressPairs(ctx, kind)
	if err != nil {
		return nil, err
	}
	for _, p := range addr {
		add(p)
	}

	idents, err := d.identifierPairs(ctx, kind)
	if err != nil {
		return nil, err
	}
	for _, p := range idents {
		add(p)
	}

	embedded, err := d.embeddedPairs(ctx, kind)
	if err != nil {
		return nil, err
	}
	for _, p := range embedded {
		add(p)
	}

	d.logger.Info("duplicate detection complete", "kind", string(kind), "pairs", len(pairs))
	return pairs, nil
}

func (d *Detector) coordinatePairs(ctx context.Context, kind id.Kind) ([]models.Pair, error) {
	neighbors, err := d.entities.CoordinateNeighbors(ctx, kind, d.candidateLimit)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "coordinate neighbors", err)
	}
	var out []models.Pair
	for _, n := range neighbors {
		a, err := d.entities.Get(ctx, n.AID)
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "load entity", err)
		}
		b, err := d.entities.Get(ctx, n.BID)
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "load entity", err)
		}
		if !a.HasCoordinates() || !b.HasCoordinates() {
			continue
		}
		dist := models.HaversineMeters(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude)
		if dist <= d.thresholdMeters {
			out = append(out, models.Pair{
				AID: n.AID, BID: n.BID,
				Basis:      models.BasisCoordinateProximity,
				Confidence: confidenceCoordinate,
			})
		}
	}
	return out, nil
}

func (d *Detector) addressPairs(ctx context.Context, kind id.Kind) ([]models.Pair, error) {
	collisions, err := d.entities.AddressKeyCollisions(ctx, kind, d.candidateLimit)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "address key collisions", err)
	}
	out := make([]models.Pair, 0, len(collisions))
	for _, c := range collisions {
		out = append(out, models.Pair{
			AID: c.AID, BID: c.BID,
			Basis:      models.BasisNormalizedAddressEquality,
			Confidence: confidenceAddress,
		})
	}
	return out, nil
}

// identifierPairs finds duplicates through shared identifier values. For
// people the signal is a pending identifier update whose new value is
// already owned by someone else; for animals it is a shared microchip.
// Blacklisted values never generate pairs.
func (d *Detector) identifierPairs(ctx context.Context, kind id.Kind) ([]models.Pair, error) {
	if kind == id.KindAnimal {
		collisions, err := d.entities.MicrochipCollisions(ctx, kind, d.candidateLimit)
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "microchip collisions", err)
		}
		var out []models.Pair
		for _, c := range collisions {
			blacklisted, err := d.blacklisted(ctx, c.Key)
			if err != nil {
				return nil, err
			}
			if blacklisted {
				continue
			}
			out = append(out, models.Pair{
				AID: c.AID, BID: c.BID,
				Basis:      models.BasisIdentifierCollision,
				Confidence: confidenceIdentifier,
			})
		}
		return out, nil
	}
	if kind != id.KindPerson {
		return nil, nil
	}

	pending, err := d.identifiers.ListPendingUpdates(ctx, d.candidateLimit)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list pending updates", err)
	}
	var out []models.Pair
	for _, rec := range pending {
		owner, err := d.identifiers.FindOwner(ctx, rec.Type, rec.NewNormalized)
		if err != nil {
			if errors.Is(err, identstore.ErrNotFound) {
				continue
			}
			return nil, dErrors.Wrap(dErrors.CodeInternal, "find identifier owner", err)
		}
		if owner.PersonID == rec.PersonID {
			continue
		}
		blacklisted, err := d.blacklisted(ctx, rec.NewNormalized)
		if err != nil {
			return nil, err
		}
		if blacklisted {
			continue
		}
		out = append(out, models.Pair{
			AID: rec.PersonID, BID: owner.PersonID,
			Basis:      models.BasisIdentifierCollision,
			Confidence: confidenceIdentifier,
		})
	}
	return out, nil
}

// embeddedPairs extracts microchips buried in display names and pairs the
// carrier with the entity that owns the chip outright.
func (d *Detector) embeddedPairs(ctx context.Context, kind id.Kind) ([]models.Pair, error) {
	if kind != id.KindAnimal {
		return nil, nil
	}
	var out []models.Pair
	for offset := 0; ; offset += d.candidateLimit {
		batch, err := d.entities.ListActive(ctx, kind, d.candidateLimit, offset)
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "list entities", err)
		}
		if len(batch) == 0 {
			break
		}
		for _, e := range batch {
			ext := d.extractor.Microchip(e.DisplayName)
			if ext == nil || ext.Value == e.Microchip {
				continue
			}
			owner, err := d.entities.FindByMicrochip(ctx, kind, ext.Value)
			if err != nil {
				if errors.Is(err, entitystore.ErrNotFound) {
					continue
				}
				return nil, dErrors.Wrap(dErrors.CodeInternal, "find entity by microchip", err)
			}
			if owner.ID == e.ID {
				continue
			}
			out = append(out, models.Pair{
				AID: e.ID, BID: owner.ID,
				Basis:      models.BasisEmbeddedPatternExtraction,
				Confidence: ext.Confidence,
			})
		}
		if len(batch) < d.candidateLimit {
			break
		}
	}
	return out, nil
}

func (d *Detector) blacklisted(ctx context.Context, value string) (bool, error) {
	m, err := d.registry.Evaluate(ctx, value)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}
