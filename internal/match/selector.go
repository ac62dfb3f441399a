package match

import (
	"context"

	"trapper/internal/classify"
	entitymodels "trapper/internal/entity/models"
	identmodels "trapper/internal/identifier/models"
	id "trapper/pkg/domain"
	dErrors "trapper/pkg/domain-errors"
)

// Signal weights per kind. Within a kind the top signal dominates
// everything below it combined, so the ordering of signals is strict.
const (
	weightVerifiedGeocode   = 8
	weightAnyCoordinate     = 4
	weightLongerAddress     = 2
	weightStructuredAddress = 1

	weightRealEmail  = 8
	weightPhone      = 4
	weightLongerName = 2

	weightMicrochip = 8
	weightHasName   = 2
)

// Signals carries the per-entity facts canonical selection needs but the
// entity row itself does not hold: identifier presence for persons and how
// many rows reference the entity.
type Signals struct {
	HasRealEmail bool
	HasPhone     bool
	References   int
}

// PickCanonical deterministically selects the winner between two candidate
// duplicates. It is order independent: PickCanonical(a, b, sa, sb) and
// PickCanonical(b, a, sb, sa) name the same entity. Ties fall to the more
// referenced record, then the earlier created one, then the lower id, so
// reruns are stable.
func PickCanonical(a, b *entitymodels.Entity, sa, sb Signals) id.EntityID {
	wa, wb := score(a, b, sa), score(b, a, sb)
	if wa > wb {
		return a.ID
	}
	if wb > wa {
		return b.ID
	}
	if sa.References != sb.References {
		if sa.References > sb.References {
			return a.ID
		}
		return b.ID
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.Before(b.CreatedAt) {
			return a.ID
		}
		return b.ID
	}
	if a.ID.String() < b.ID.String() {
		return a.ID
	}
	return b.ID
}

func score(e, other *entitymodels.Entity, sig Signals) int {
	s := 0
	switch e.Kind {
	case id.KindPerson:
		if sig.HasRealEmail {
			s += weightRealEmail
		}
		if sig.HasPhone {
			s += weightPhone
		}
		if len(e.DisplayName) > len(other.DisplayName) {
			s += weightLongerName
		}
	case id.KindAnimal:
		if e.Microchip != "" {
			s += weightMicrochip
		}
		if e.DisplayName != "" {
			s += weightHasName
		}
	default:
		if e.GeocodeVerified {
			s += weightVerifiedGeocode
		}
		if e.HasCoordinates() {
			s += weightAnyCoordinate
		}
		if len(e.FormattedAddress) > len(other.FormattedAddress) {
			s += weightLongerAddress
		}
		if e.StructuredAddressID != nil {
			s += weightStructuredAddress
		}
	}
	return s
}

// SelectorIdentifiers lists a person's current identifiers.
type SelectorIdentifiers interface {
	ListByPerson(ctx context.Context, personID id.EntityID) ([]*identmodels.Identifier, error)
}

// EmailClassifier separates personal contact addresses from organizational
// and throwaway ones.
type EmailClassifier interface {
	ClassifyIdentifier(ctx context.Context, value string) (classify.Classification, error)
}

// ReferenceCounter reports how many rows point at an entity.
type ReferenceCounter interface {
	CountReferences(ctx context.Context, entityID id.EntityID) (int, error)
}

// Selector loads the signals PickCanonical scores from: identifier
// presence for persons and reference counts for every kind.
type Selector struct {
	identifiers SelectorIdentifiers
	classifier  EmailClassifier
	references  ReferenceCounter
}

func NewSelector(identifiers SelectorIdentifiers, classifier EmailClassifier, references ReferenceCounter) *Selector {
	return &Selector{identifiers: identifiers, classifier: classifier, references: references}
}

// Pick gathers both entities' signals and runs canonical selection.
func (s *Selector) Pick(ctx context.Context, a, b *entitymodels.Entity) (id.EntityID, error) {
	sa, err := s.signals(ctx, a)
	if err != nil {
		return id.EntityID{}, err
	}
	sb, err := s.signals(ctx, b)
	if err != nil {
		return id.EntityID{}, err
	}
	return PickCanonical(a, b, sa, sb), nil
}

func (s *Selector) signals(ctx context.Context, e *entitymodels.Entity) (Signals, error) {
	var sig Signals
	n, err := s.references.CountReferences(ctx, e.ID)
	if err != nil {
		return sig, dErrors.Wrap(dErrors.CodeInternal, "count entity references", err)
	}
	sig.References = n

	if e.Kind != id.KindPerson {
		return sig, nil
	}
	idents, err := s.identifiers.ListByPerson(ctx, e.ID)
	if err != nil {
		return sig, dErrors.Wrap(dErrors.CodeInternal, "list person identifiers", err)
	}
	for _, ident := range idents {
		switch ident.Type {
		case identmodels.TypePhone:
			sig.HasPhone = true
		case identmodels.TypeEmail:
			if sig.HasRealEmail {
				continue
			}
			c, err := s.classifier.ClassifyIdentifier(ctx, ident.NormalizedValue)
			if err != nil {
				return sig, err
			}
			if c == classify.Personal {
				sig.HasRealEmail = true
			}
		}
	}
	return sig, nil
}
