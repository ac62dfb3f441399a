package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"trapper/internal/identifier/models"
	id "trapper/pkg/domain"
	txcontext "trapper/pkg/platform/tx"
)

const pqUniqueViolation = "23505"

// PostgresStore persists identifiers and the identifier update trail.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const identifierColumns = `
	id, person_id, identifier_type, raw_value, normalized_value, created_at, updated_at`

func (s *PostgresStore) FindOwner(ctx context.Context, idType models.IdentifierType, normalized string) (*models.Identifier, error) {
	query := `SELECT ` + identifierColumns + ` FROM identifiers WHERE identifier_type = $1 AND normalized_value = $2`
	ident, err := scanIdentifier(s.execer(ctx).QueryRowContext(ctx, query, string(idType), normalized))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find identifier owner: %w", err)
	}
	return ident, nil
}

func (s *PostgresStore) ListByPerson(ctx context.Context, personID id.EntityID) ([]*models.Identifier, error) {
	query := `SELECT ` + identifierColumns + ` FROM identifiers WHERE person_id = $1 ORDER BY identifier_type, normalized_value`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(personID))
	if err != nil {
		return nil, fmt.Errorf("list identifiers: %w", err)
	}
	defer rows.Close()

	var out []*models.Identifier
	for rows.Next() {
		ident, err := scanIdentifier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		out = append(out, ident)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Insert(ctx context.Context, ident *models.Identifier) error {
	query := `
		INSERT INTO identifiers (id, person_id, identifier_type, raw_value, normalized_value)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(ident.ID), uuid.UUID(ident.PersonID), string(ident.Type),
		ident.RawValue, ident.NormalizedValue)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert identifier: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateValue(ctx context.Context, identID id.EntityID, raw, normalized string) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE identifiers SET raw_value = $2, normalized_value = $3, updated_at = now() WHERE id = $1`,
		uuid.UUID(identID), raw, normalized)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("update identifier: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) RepointToPerson(ctx context.Context, loser, winner id.EntityID) (int, error) {
	ex := s.execer(ctx)
	l, w := uuid.UUID(loser), uuid.UUID(winner)

	// Loser rows whose normalized value the winner already owns would trip
	// the unique constraint on repoint; drop them first.
	dedupe := `
		DELETE FROM identifiers i
		WHERE i.person_id = $1
		  AND EXISTS (
			SELECT 1 FROM identifiers w
			WHERE w.person_id = $2
			  AND w.identifier_type = i.identifier_type
			  AND w.normalized_value = i.normalized_value
		  )
	`
	if _, err := ex.ExecContext(ctx, dedupe, l, w); err != nil {
		return 0, fmt.Errorf("dedupe identifiers: %w", err)
	}

	res, err := ex.ExecContext(ctx,
		`UPDATE identifiers SET person_id = $2, updated_at = now() WHERE person_id = $1`, l, w)
	if err != nil {
		return 0, fmt.Errorf("repoint identifiers: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

const updateColumns = `
	id, person_id, identifier_type, old_raw, new_raw, old_normalized, new_normalized,
	source, actor, reason, was_applied, apply_notes, created_at, applied_at`

func (s *PostgresStore) CreateUpdate(ctx context.Context, rec *models.UpdateRecord) error {
	query := `
		INSERT INTO identifier_updates (
			id, person_id, identifier_type, old_raw, new_raw,
			old_normalized, new_normalized, source, actor, reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(rec.ID), uuid.UUID(rec.PersonID), string(rec.Type),
		rec.OldRaw, rec.NewRaw, rec.OldNormalized, rec.NewNormalized,
		rec.Source, rec.Actor, rec.Reason)
	if err != nil {
		return fmt.Errorf("insert identifier update: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUpdate(ctx context.Context, updateID id.UpdateID) (*models.UpdateRecord, error) {
	query := `SELECT ` + updateColumns + ` FROM identifier_updates WHERE id = $1`
	rec, err := scanUpdate(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(updateID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get identifier update: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) MarkUpdateApplied(ctx context.Context, updateID id.UpdateID, applied bool, notes string, at time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE identifier_updates SET was_applied = $2, apply_notes = $3, applied_at = $4 WHERE id = $1`,
		uuid.UUID(updateID), applied, notes, at)
	if err != nil {
		return fmt.Errorf("mark identifier update: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ListPendingUpdates(ctx context.Context, limit int) ([]*models.UpdateRecord, error) {
	query := `
		SELECT ` + updateColumns + `
		FROM identifier_updates
		WHERE NOT was_applied AND applied_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending updates: %w", err)
	}
	defer rows.Close()

	var out []*models.UpdateRecord
	for rows.Next() {
		rec, err := scanUpdate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identifier update: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentifier(row rowScanner) (*models.Identifier, error) {
	var (
		ident           models.Identifier
		identID, person uuid.UUID
		identType       string
	)
	err := row.Scan(&identID, &person, &identType, &ident.RawValue,
		&ident.NormalizedValue, &ident.CreatedAt, &ident.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ident.ID = id.EntityID(identID)
	ident.PersonID = id.EntityID(person)
	ident.Type = models.IdentifierType(identType)
	return &ident, nil
}

func scanUpdate(row rowScanner) (*models.UpdateRecord, error) {
	var (
		rec              models.UpdateRecord
		updateID, person uuid.UUID
		identType        string
	)
	err := row.Scan(&updateID, &person, &identType,
		&rec.OldRaw, &rec.NewRaw, &rec.OldNormalized, &rec.NewNormalized,
		&rec.Source, &rec.Actor, &rec.Reason,
		&rec.WasApplied, &rec.ApplyNotes, &rec.CreatedAt, &rec.AppliedAt)
	if err != nil {
		return nil, err
	}
	rec.ID = id.UpdateID(updateID)
	rec.PersonID = id.EntityID(person)
	rec.Type = models.IdentifierType(identType)
	return &rec, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
