package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trapper/internal/audit/models"
	id "trapper/pkg/domain"
	txcontext "trapper/pkg/platform/tx"
)

// PostgresStore persists corrections and the transactional outbox.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, entry *models.Entry) error {
	ex := s.execer(ctx)

	query := `
		INSERT INTO corrections (id, entity_type, entity_id, change_type, field, old_value, new_value, reason, actor)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := ex.ExecContext(ctx, query,
		uuid.UUID(entry.ID), entry.EntityType, uuid.UUID(entry.EntityID),
		string(entry.ChangeType), entry.Field, entry.OldValue, entry.NewValue,
		entry.Reason, entry.Actor)
	if err != nil {
		return fmt.Errorf("insert correction: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"correction_id": entry.ID.String(),
		"entity_type":   entry.EntityType,
		"entity_id":     entry.EntityID.String(),
		"change_type":   string(entry.ChangeType),
		"field":         entry.Field,
		"old_value":     entry.OldValue,
		"new_value":     entry.NewValue,
		"reason":        entry.Reason,
		"actor":         entry.Actor,
	})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO outbox (id, topic_key, payload) VALUES ($1, $2, $3)`,
		uuid.UUID(id.NewEntityID()), entry.EntityID.String(), payload)
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEntity(ctx context.Context, entityType string, entityID id.EntityID) ([]*models.Entry, error) {
	query := `
		SELECT id, entity_type, entity_id, change_type, field, old_value, new_value, reason, actor, created_at
		FROM corrections
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, entityType, uuid.UUID(entityID))
	if err != nil {
		return nil, fmt.Errorf("list corrections: %w", err)
	}
	defer rows.Close()

	var out []*models.Entry
	for rows.Next() {
		var (
			e          models.Entry
			entryID    uuid.UUID
			target     uuid.UUID
			changeType string
		)
		err := rows.Scan(&entryID, &e.EntityType, &target, &changeType,
			&e.Field, &e.OldValue, &e.NewValue, &e.Reason, &e.Actor, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		e.ID = id.EntityID(entryID)
		e.EntityID = id.EntityID(target)
		e.ChangeType = models.ChangeType(changeType)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListUnpublished(ctx context.Context, limit int) ([]*models.OutboxMessage, error) {
	query := `
		SELECT id, topic_key, payload, created_at, published_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unpublished outbox: %w", err)
	}
	defer rows.Close()

	var out []*models.OutboxMessage
	for rows.Next() {
		var (
			m   models.OutboxMessage
			mID uuid.UUID
		)
		if err := rows.Scan(&mID, &m.TopicKey, &m.Payload, &m.CreatedAt, &m.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		m.ID = id.EntityID(mID)
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkPublished(ctx context.Context, messageID id.EntityID, at time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE outbox SET published_at = $2 WHERE id = $1 AND published_at IS NULL`,
		uuid.UUID(messageID), at)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
