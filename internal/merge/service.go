package merge

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	auditmodels "trapper/internal/audit/models"
	entitymodels "trapper/internal/entity/models"
	entitystore "trapper/internal/entity/store"
	"trapper/internal/merge/metrics"
	id "trapper/pkg/domain"
	dErrors "trapper/pkg/domain-errors"
)

var tracer = otel.Tracer("trapper/merge")

type EntityStore interface {
	Get(ctx context.Context, entityID id.EntityID) (*entitymodels.Entity, error)
	Tombstone(ctx context.Context, loserID, winnerID id.EntityID, reason string, at time.Time) error
}

type EdgeStore interface {
	RepointEdges(ctx context.Context, loser, winner id.EntityID) (int, error)
	RepointRequestLinks(ctx context.Context, loser, winner id.EntityID) (int, error)
	RepointScalarReferences(ctx context.Context, loser, winner id.EntityID) (int, error)
	CountReferences(ctx context.Context, entityID id.EntityID) (int, error)
}

type IdentifierStore interface {
	RepointToPerson(ctx context.Context, loser, winner id.EntityID) (int, error)
}

// AuditLog receives the append-only record of every merge.
type AuditLog interface {
	Append(ctx context.Context, entry *auditmodels.Entry) error
}

// TxRunner wraps a unit of work in one atomic transaction. The in-memory
// implementation used by tests runs the function directly.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the merge executor: it atomically migrates every relationship
// from a losing entity to the winner, writes the audit entry, and
// tombstones the loser.
type Service struct {
	entities    EntityStore
	edges       EdgeStore
	identifiers IdentifierStore
	audit       AuditLog
	tx          TxRunner
	logger      *slog.Logger
}

func NewService(entities EntityStore, edges EdgeStore, identifiers IdentifierStore, audit AuditLog, tx TxRunner, logger *slog.Logger) *Service {
	return &Service{
		entities:    entities,
		edges:       edges,
		identifiers: identifiers,
		audit:       audit,
		tx:          tx,
		logger:      logger,
	}
}

// Merge re-points every reference from loser to winner and tombstones the
// loser, all in one transaction. It returns false without error when either
// side is missing or already merged, so re-invoking it is always safe.
func (s *Service) Merge(ctx context.Context, winnerID, loserID id.EntityID, reason, actor string) (bool, error) {
	ctx, span := tracer.Start(ctx, "merge.Execute",
		trace.WithAttributes(
			attribute.String("winner_id", winnerID.String()),
			attribute.String("loser_id", loserID.String()),
			attribute.String("reason", reason),
		))
	defer span.End()

	started := time.Now()
	defer func() {
		metrics.MergeDuration.Observe(time.Since(started).Seconds())
	}()

	if winnerID == loserID {
		return false, dErrors.New(dErrors.CodeValidation, "winner and loser must differ")
	}

	applied := false
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		winner, loser, ok, err := s.loadPair(ctx, winnerID, loserID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if winner.Kind != loser.Kind {
			return dErrors.New(dErrors.CodeValidation, "cannot merge entities of different kinds")
		}

		if err := s.repoint(ctx, winner, loser); err != nil {
			return err
		}
		if err := s.writeAudit(ctx, winner, loser, reason, actor); err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := s.entities.Tombstone(ctx, loser.ID, winner.ID, reason, now); err != nil {
			if errors.Is(err, entitystore.ErrNotFound) {
				// Lost a race to another merge of the same loser.
				return nil
			}
			return dErrors.Wrap(dErrors.CodeInternal, "tombstone loser", err)
		}

		remaining, err := s.edges.CountReferences(ctx, loser.ID)
		if err != nil {
			return dErrors.Wrap(dErrors.CodeInternal, "verify loser references", err)
		}
		if remaining != 0 {
			return dErrors.New(dErrors.CodeInvariantViolation,
				fmt.Sprintf("loser %s still referenced %d times after repoint", loser.ID, remaining))
		}

		applied = true
		return nil
	})
	if err != nil {
		metrics.MergesTotal.WithLabelValues("error").Inc()
		return false, err
	}

	if applied {
		metrics.MergesTotal.WithLabelValues("applied").Inc()
		s.logger.Info("entities merged",
			"winner_id", winnerID.String(),
			"loser_id", loserID.String(),
			"reason", reason)
	} else {
		metrics.MergesTotal.WithLabelValues("noop").Inc()
	}
	return applied, nil
}

// loadPair fetches both sides and reports whether the merge should proceed.
// Missing or already tombstoned entities make it a no-op, not an error.
func (s *Service) loadPair(ctx context.Context, winnerID, loserID id.EntityID) (winner, loser *entitymodels.Entity, ok bool, err error) {
	winner, err = s.entities.Get(ctx, winnerID)
	if err != nil {
		if errors.Is(err, entitystore.ErrNotFound) {
			return nil, nil, false, nil
		}
		return nil, nil, false, dErrors.Wrap(dErrors.CodeInternal, "load winner", err)
	}
	loser, err = s.entities.Get(ctx, loserID)
	if err != nil {
		if errors.Is(err, entitystore.ErrNotFound) {
			return nil, nil, false, nil
		}
		return nil, nil, false, dErrors.Wrap(dErrors.CodeInternal, "load loser", err)
	}
	if winner.IsTombstone() || loser.IsTombstone() {
		return nil, nil, false, nil
	}
	return winner, loser, true, nil
}

func (s *Service) repoint(ctx context.Context, winner, loser *entitymodels.Entity) error {
	n, err := s.edges.RepointEdges(ctx, loser.ID, winner.ID)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "repoint relationship edges", err)
	}
	metrics.RepointedReferences.WithLabelValues("edges").Add(float64(n))

	n, err = s.edges.RepointRequestLinks(ctx, loser.ID, winner.ID)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "repoint request links", err)
	}
	metrics.RepointedReferences.WithLabelValues("request_links").Add(float64(n))

	n, err = s.edges.RepointScalarReferences(ctx, loser.ID, winner.ID)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "repoint scalar references", err)
	}
	metrics.RepointedReferences.WithLabelValues("scalar").Add(float64(n))

	if loser.Kind == id.KindPerson {
		n, err = s.identifiers.RepointToPerson(ctx, loser.ID, winner.ID)
		if err != nil {
			return dErrors.Wrap(dErrors.CodeInternal, "repoint identifiers", err)
		}
		metrics.RepointedReferences.WithLabelValues("identifiers").Add(float64(n))
	}
	return nil
}

func (s *Service) writeAudit(ctx context.Context, winner, loser *entitymodels.Entity, reason, actor string) error {
	snapshot, err := json.Marshal(map[string]any{
		"display_name":      loser.DisplayName,
		"formatted_address": loser.FormattedAddress,
		"address_key":       loser.AddressKey,
		"microchip":         loser.Microchip,
		"source_system":     loser.SourceSystem,
		"source_record_id":  loser.SourceRecordID,
	})
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "snapshot loser", err)
	}
	entry := &auditmodels.Entry{
		ID:         id.NewEntityID(),
		EntityType: string(loser.Kind),
		EntityID:   loser.ID,
		ChangeType: auditmodels.ChangeMerge,
		Field:      "merged_into",
		OldValue:   string(snapshot),
		NewValue:   winner.ID.String(),
		Reason:     reason,
		Actor:      actor,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "append audit entry", err)
	}
	return nil
}
