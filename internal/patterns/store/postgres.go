package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"trapper/internal/patterns/models"
	id "trapper/pkg/domain"
	txcontext "trapper/pkg/platform/tx"
)

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

func (s *PostgresStore) Create(ctx context.Context, p *models.Pattern) error {
	query := `
		INSERT INTO patterns (id, pattern, pattern_type, classification, match_threshold, priority, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(p.ID), p.Pattern, string(p.Type), string(p.Classification),
		p.MatchThreshold, p.Priority, p.IsActive)
	if err != nil {
		return fmt.Errorf("insert pattern: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*models.Pattern, error) {
	query := `
		SELECT id, pattern, pattern_type, classification, match_threshold, priority, is_active, created_at
		FROM patterns
		WHERE is_active
		ORDER BY priority, pattern
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active patterns: %w", err)
	}
	defer rows.Close()

	var out []*models.Pattern
	for rows.Next() {
		var (
			p         models.Pattern
			patternID uuid.UUID
			pType     string
			class     string
		)
		err := rows.Scan(&patternID, &p.Pattern, &pType, &class,
			&p.MatchThreshold, &p.Priority, &p.IsActive, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		p.ID = id.EntityID(patternID)
		p.Type = models.PatternType(pType)
		p.Classification = models.Classification(class)
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Deactivate(ctx context.Context, patternID string) error {
	parsed, err := uuid.Parse(patternID)
	if err != nil {
		return fmt.Errorf("parse pattern id: %w", err)
	}
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE patterns SET is_active = FALSE WHERE id = $1`, parsed)
	if err != nil {
		return fmt.Errorf("deactivate pattern: %w", err)
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
