package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trapper/internal/request/models"
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
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const requestColumns = `
	id, case_number, status, archive_reason,
	primary_place_id, primary_person_id, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, r *models.Request) error {
	query := `
		INSERT INTO requests (id, case_number, status, archive_reason, primary_place_id, primary_person_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(r.ID), r.CaseNumber, string(r.Status), string(r.ArchiveReason),
		idPtr(r.PrimaryPlaceID), idPtr(r.PrimaryPersonID))
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, requestID id.EntityID) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	r, err := scanRequest(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(requestID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, requestID id.EntityID, status models.Status) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE requests SET status = $2, updated_at = now() WHERE id = $1`,
		uuid.UUID(requestID), string(status))
	if err != nil {
		return fmt.Errorf("set request status: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ClearPrimaries(ctx context.Context, requestID id.EntityID) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE requests SET primary_place_id = NULL, primary_person_id = NULL, updated_at = now() WHERE id = $1`,
		uuid.UUID(requestID))
	if err != nil {
		return fmt.Errorf("clear request primaries: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ListByPrimary(ctx context.Context, entityID id.EntityID) ([]*models.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM requests
		WHERE primary_place_id = $1 OR primary_person_id = $1
		ORDER BY case_number
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(entityID))
	if err != nil {
		return nil, fmt.Errorf("list requests by primary: %w", err)
	}
	defer rows.Close()

	var out []*models.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		r             models.Request
		requestID     uuid.UUID
		status        string
		archiveReason sql.NullString
		place, person *uuid.UUID
	)
	err := row.Scan(&requestID, &r.CaseNumber, &status, &archiveReason,
		&place, &person, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.ID = id.EntityID(requestID)
	r.Status = models.Status(status)
	r.ArchiveReason = models.ArchiveReason(archiveReason.String)
	if place != nil {
		p := id.EntityID(*place)
		r.PrimaryPlaceID = &p
	}
	if person != nil {
		p := id.EntityID(*person)
		r.PrimaryPersonID = &p
	}
	return &r, nil
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

func idPtr(v *id.EntityID) *uuid.UUID {
	if v == nil {
		return nil
	}
	u := uuid.UUID(*v)
	return &u
}
