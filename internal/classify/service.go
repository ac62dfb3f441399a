package classify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"trapper/internal/classify/metrics"
	entitymodels "trapper/internal/entity/models"
	identmodels "trapper/internal/identifier/models"
	patmodels "trapper/internal/patterns/models"
	"trapper/internal/patterns/registry"
	id "trapper/pkg/domain"
	dErrors "trapper/pkg/domain-errors"
)

// Classification is the verdict on one identifier value.
type Classification string

const (
	Organizational Classification = "organizational"
	Personal       Classification = "personal"
	Unknown        Classification = "unknown"
)

// Local-parts that belong to a role inbox rather than a person.
var organizationalLocalParts = map[string]bool{
	"info": true, "office": true, "contact": true,
	"admin": true, "help": true, "support": true,
}

// Email domains that never identify a real external contact.
var untrustedDomainSuffixes = []string{
	"example.com", "example.org", "test.com", "invalid", "localhost",
}

type EntityStore interface {
	Get(ctx context.Context, entityID id.EntityID) (*entitymodels.Entity, error)
	Update(ctx context.Context, e *entitymodels.Entity) error
	ListActive(ctx context.Context, kind id.Kind, limit, offset int) ([]*entitymodels.Entity, error)
}

type IdentifierStore interface {
	ListByPerson(ctx context.Context, personID id.EntityID) ([]*identmodels.Identifier, error)
}

type Registry interface {
	Evaluate(ctx context.Context, value string) (*registry.Match, error)
	EvaluateName(ctx context.Context, name string) (*registry.Match, error)
}

// Service decides whether a person record is a genuine external contact.
// The verdict is a pure function of current identifiers, the display name,
// and the active pattern set, so recomputing it is always safe.
type Service struct {
	entities    EntityStore
	identifiers IdentifierStore
	registry    Registry
	logger      *slog.Logger
	batchSize   int
}

func NewService(entities EntityStore, identifiers IdentifierStore, reg Registry, logger *slog.Logger, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &Service{
		entities:    entities,
		identifiers: identifiers,
		registry:    reg,
		logger:      logger,
		batchSize:   batchSize,
	}
}

// IsCanonical reports whether the person represents a real external contact.
func (s *Service) IsCanonical(ctx context.Context, personID id.EntityID) (bool, error) {
	person, err := s.entities.Get(ctx, personID)
	if err != nil {
		return false, err
	}
	if person.Kind != id.KindPerson {
		return false, dErrors.New(dErrors.CodeValidation, "entity is not a person")
	}
	return s.classify(ctx, person)
}

func (s *Service) classify(ctx context.Context, person *entitymodels.Entity) (bool, error) {
	if person.IsTombstone() {
		return false, nil
	}

	// Rule 1: name matches an internal or organizational registry entry.
	if m, err := s.registry.EvaluateName(ctx, person.DisplayName); err != nil {
		return false, err
	} else if m != nil && (m.Classification == patmodels.ClassInternal || m.Classification == patmodels.ClassOrganizational) {
		metrics.ClassificationsTotal.WithLabelValues("name_pattern").Inc()
		return false, nil
	}

	idents, err := s.identifiers.ListByPerson(ctx, person.ID)
	if err != nil {
		return false, dErrors.Wrap(dErrors.CodeInternal, "list person identifiers", err)
	}

	// Rules 2 and 3: at least one identifier must survive the checks.
	for _, ident := range idents {
		real, err := s.identifierCounts(ctx, ident)
		if err != nil {
			return false, err
		}
		if real {
			metrics.ClassificationsTotal.WithLabelValues("canonical").Inc()
			return true, nil
		}
	}
	metrics.ClassificationsTotal.WithLabelValues("no_real_identifier").Inc()
	return false, nil
}

func (s *Service) identifierCounts(ctx context.Context, ident *identmodels.Identifier) (bool, error) {
	switch ident.Type {
	case identmodels.TypeEmail:
		c, err := s.classifyEmail(ctx, ident.NormalizedValue)
		if err != nil {
			return false, err
		}
		return c == Personal, nil
	case identmodels.TypePhone:
		m, err := s.registry.Evaluate(ctx, ident.NormalizedValue)
		if err != nil {
			return false, err
		}
		return m == nil, nil
	}
	return false, nil
}

// ClassifyIdentifier is the predicate ingestion uses to route organizational
// accounts away from person creation.
func (s *Service) ClassifyIdentifier(ctx context.Context, value string) (Classification, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Unknown, nil
	}
	if strings.Contains(v, "@") {
		return s.classifyEmail(ctx, v)
	}

	m, err := s.registry.Evaluate(ctx, v)
	if err != nil {
		return Unknown, err
	}
	if m != nil {
		return Organizational, nil
	}
	return Unknown, nil
}

func (s *Service) classifyEmail(ctx context.Context, email string) (Classification, error) {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return Unknown, nil
	}
	if organizationalLocalParts[local] {
		return Organizational, nil
	}
	for _, suffix := range untrustedDomainSuffixes {
		if domain == suffix || strings.HasSuffix(domain, "."+suffix) {
			return Unknown, nil
		}
	}
	m, err := s.registry.Evaluate(ctx, email)
	if err != nil {
		return Unknown, err
	}
	if m != nil {
		switch m.Classification {
		case patmodels.ClassOrganizational, patmodels.ClassInternal:
			return Organizational, nil
		case patmodels.ClassLowTrust:
			return Unknown, nil
		}
	}
	return Personal, nil
}

// RefreshResult summarizes one canonical flag refresh run.
type RefreshResult struct {
	Total        int
	Canonical    int
	NonCanonical int
}

// RefreshFlags recomputes is_canonical for every living person. Running it
// twice without data changes produces identical counts and flags.
func (s *Service) RefreshFlags(ctx context.Context) (RefreshResult, error) {
	started := time.Now()
	defer func() {
		metrics.RefreshDuration.Observe(time.Since(started).Seconds())
	}()

	var result RefreshResult
	for offset := 0; ; offset += s.batchSize {
		people, err := s.entities.ListActive(ctx, id.KindPerson, s.batchSize, offset)
		if err != nil {
			return result, err
		}
		if len(people) == 0 {
			break
		}
		for _, person := range people {
			canonical, err := s.classify(ctx, person)
			if err != nil {
				return result, err
			}
			result.Total++
			if canonical {
				result.Canonical++
			} else {
				result.NonCanonical++
			}
			metrics.RefreshedPersons.Inc()

			if person.IsCanonical != canonical {
				person.IsCanonical = canonical
				if err := s.entities.Update(ctx, person); err != nil {
					return result, dErrors.Wrap(dErrors.CodeInternal, "persist canonical flag", err)
				}
			}
		}
		if len(people) < s.batchSize {
			break
		}
	}

	s.logger.Info("canonical flags refreshed",
		"total", result.Total,
		"canonical", result.Canonical,
		"non_canonical", result.NonCanonical)
	return result, nil
}
