package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trapper/internal/entity/models"
	id "trapper/pkg/domain"
	txcontext "trapper/pkg/platform/tx"
)

// PostgresStore persists entities in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed entity store.
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

const entityColumns = `
	id, kind, source_system, source_record_id, display_name,
	formatted_address, address_key, latitude, longitude, geocode_verified,
	structured_address_id, microchip, is_canonical,
	merged_into, merged_at, merge_reason, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, e *models.Entity) error {
	if e == nil {
		return fmt.Errorf("entity is required")
	}
	query := `
		INSERT INTO entities (
			id, kind, source_system, source_record_id, display_name,
			formatted_address, address_key, latitude, longitude,
			geocode_verified, structured_address_id, microchip, is_canonical
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(e.ID), string(e.Kind), e.SourceSystem, e.SourceRecordID,
		e.DisplayName, e.FormattedAddress, e.AddressKey,
		e.Latitude, e.Longitude, e.GeocodeVerified,
		entityIDPtr(e.StructuredAddressID), e.Microchip, e.IsCanonical,
	)
	if err != nil {
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, entityID id.EntityID) (*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(entityID))
	e, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) UpsertBySource(ctx context.Context, e *models.Entity) (*models.Entity, bool, error) {
	if e == nil {
		return nil, false, fmt.Errorf("entity is required")
	}
	if e.SourceSystem == "" || e.SourceRecordID == "" {
		return nil, false, fmt.Errorf("source system and record id are required for upsert")
	}
	// Non-empty incoming fields win; existing values survive otherwise.
	query := `
		INSERT INTO entities (
			id, kind, source_system, source_record_id, display_name,
			formatted_address, address_key, latitude, longitude,
			geocode_verified, structured_address_id, microchip, is_canonical
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (source_system, source_record_id)
			WHERE source_system <> '' AND source_record_id <> ''
		DO UPDATE SET
			display_name      = CASE WHEN excluded.display_name <> '' THEN excluded.display_name ELSE entities.display_name END,
			formatted_address = CASE WHEN excluded.formatted_address <> '' THEN excluded.formatted_address ELSE entities.formatted_address END,
			address_key       = CASE WHEN excluded.address_key <> '' THEN excluded.address_key ELSE entities.address_key END,
			latitude          = COALESCE(excluded.latitude, entities.latitude),
			longitude         = COALESCE(excluded.longitude, entities.longitude),
			geocode_verified  = entities.geocode_verified OR excluded.geocode_verified,
			microchip         = CASE WHEN excluded.microchip <> '' THEN excluded.microchip ELSE entities.microchip END,
			updated_at        = now()
		RETURNING ` + entityColumns + `, (xmax = 0) AS inserted
	`
	row := s.execer(ctx).QueryRowContext(ctx, query,
		uuid.UUID(e.ID), string(e.Kind), e.SourceSystem, e.SourceRecordID,
		e.DisplayName, e.FormattedAddress, e.AddressKey,
		e.Latitude, e.Longitude, e.GeocodeVerified,
		entityIDPtr(e.StructuredAddressID), e.Microchip, e.IsCanonical,
	)
	stored, inserted, err := scanEntityWithInserted(row)
	if err != nil {
		return nil, false, fmt.Errorf("upsert entity: %w", err)
	}
	return stored, inserted, nil
}

func (s *PostgresStore) Update(ctx context.Context, e *models.Entity) error {
	if e == nil {
		return fmt.Errorf("entity is required")
	}
	query := `
		UPDATE entities SET
			display_name = $2, formatted_address = $3, address_key = $4,
			latitude = $5, longitude = $6, geocode_verified = $7,
			structured_address_id = $8, microchip = $9, is_canonical = $10,
			updated_at = now()
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(e.ID), e.DisplayName, e.FormattedAddress, e.AddressKey,
		e.Latitude, e.Longitude, e.GeocodeVerified,
		entityIDPtr(e.StructuredAddressID), e.Microchip, e.IsCanonical,
	)
	if err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Tombstone(ctx context.Context, loserID, winnerID id.EntityID, reason string, at time.Time) error {
	query := `
		UPDATE entities
		SET merged_into = $2, merged_at = $3, merge_reason = $4, updated_at = now()
		WHERE id = $1 AND merged_into IS NULL
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(loserID), uuid.UUID(winnerID), at, reason,
	)
	if err != nil {
		return fmt.Errorf("tombstone entity: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ListActive(ctx context.Context, kind id.Kind, limit, offset int) ([]*models.Entity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE kind = $1 AND merged_into IS NULL
		ORDER BY id
		LIMIT $2 OFFSET $3
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, string(kind), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list active entities: %w", err)
	}
	defer rows.Close()

	var out []*models.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AddressKeyCollisions(ctx context.Context, kind id.Kind, limit int) ([]KeyCollision, error) {
	query := `
		SELECT a.address_key, a.id, b.id
		FROM entities a
		JOIN entities b
		  ON b.kind = a.kind
		 AND b.address_key = a.address_key
		 AND b.id > a.id
		 AND b.merged_into IS NULL
		WHERE a.kind = $1
		  AND a.merged_into IS NULL
		  AND a.address_key <> ''
		ORDER BY a.address_key, a.id
		LIMIT $2
	`
	return s.queryCollisions(ctx, query, string(kind), limit)
}

func (s *PostgresStore) CoordinateNeighbors(ctx context.Context, kind id.Kind, limit int) ([]KeyCollision, error) {
	// Same or adjacent 3-decimal bucket (~110m cells); the detector applies
	// the exact distance threshold afterwards.
	query := `
		SELECT round(a.latitude::numeric, 3)::text || ',' || round(a.longitude::numeric, 3)::text,
		       a.id, b.id
		FROM entities a
		JOIN entities b
		  ON b.kind = a.kind
		 AND b.id > a.id
		 AND b.merged_into IS NULL
		 AND b.latitude IS NOT NULL AND b.longitude IS NOT NULL
		 AND round(b.latitude::numeric, 3)  BETWEEN round(a.latitude::numeric, 3) - 0.001  AND round(a.latitude::numeric, 3) + 0.001
		 AND round(b.longitude::numeric, 3) BETWEEN round(a.longitude::numeric, 3) - 0.001 AND round(a.longitude::numeric, 3) + 0.001
		WHERE a.kind = $1
		  AND a.merged_into IS NULL
		  AND a.latitude IS NOT NULL AND a.longitude IS NOT NULL
		ORDER BY a.id
		LIMIT $2
	`
	return s.queryCollisions(ctx, query, string(kind), limit)
}

func (s *PostgresStore) MicrochipCollisions(ctx context.Context, kind id.Kind, limit int) ([]KeyCollision, error) {
	query := `
		SELECT a.microchip, a.id, b.id
		FROM entities a
		JOIN entities b
		  ON b.kind = a.kind
		 AND b.microchip = a.microchip
		 AND b.id > a.id
		 AND b.merged_into IS NULL
		WHERE a.kind = $1
		  AND a.merged_into IS NULL
		  AND a.microchip <> ''
		ORDER BY a.microchip, a.id
		LIMIT $2
	`
	return s.queryCollisions(ctx, query, string(kind), limit)
}

func (s *PostgresStore) FindByMicrochip(ctx context.Context, kind id.Kind, chip string) (*models.Entity, error) {
	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE kind = $1 AND microchip = $2 AND merged_into IS NULL
		ORDER BY created_at
		LIMIT 1
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, string(kind), chip)
	e, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find entity by microchip: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) queryCollisions(ctx context.Context, query string, args ...any) ([]KeyCollision, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query collisions: %w", err)
	}
	defer rows.Close()

	var out []KeyCollision
	for rows.Next() {
		var (
			key  string
			a, b uuid.UUID
		)
		if err := rows.Scan(&key, &a, &b); err != nil {
			return nil, fmt.Errorf("scan collision: %w", err)
		}
		out = append(out, KeyCollision{Key: key, AID: id.EntityID(a), BID: id.EntityID(b)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collisions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*models.Entity, error) {
	var (
		e            models.Entity
		entityID     uuid.UUID
		kind         string
		structuredID *uuid.UUID
		mergedInto   *uuid.UUID
	)
	err := row.Scan(
		&entityID, &kind, &e.SourceSystem, &e.SourceRecordID, &e.DisplayName,
		&e.FormattedAddress, &e.AddressKey, &e.Latitude, &e.Longitude,
		&e.GeocodeVerified, &structuredID, &e.Microchip, &e.IsCanonical,
		&mergedInto, &e.MergedAt, &e.MergeReason, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.ID = id.EntityID(entityID)
	e.Kind = id.Kind(kind)
	e.StructuredAddressID = toEntityIDPtr(structuredID)
	e.MergedInto = toEntityIDPtr(mergedInto)
	return &e, nil
}

func scanEntityWithInserted(row rowScanner) (*models.Entity, bool, error) {
	var (
		e            models.Entity
		entityID     uuid.UUID
		kind         string
		structuredID *uuid.UUID
		mergedInto   *uuid.UUID
		inserted     bool
	)
	err := row.Scan(
		&entityID, &kind, &e.SourceSystem, &e.SourceRecordID, &e.DisplayName,
		&e.FormattedAddress, &e.AddressKey, &e.Latitude, &e.Longitude,
		&e.GeocodeVerified, &structuredID, &e.Microchip, &e.IsCanonical,
		&mergedInto, &e.MergedAt, &e.MergeReason, &e.CreatedAt, &e.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return nil, false, err
	}
	e.ID = id.EntityID(entityID)
	e.Kind = id.Kind(kind)
	e.StructuredAddressID = toEntityIDPtr(structuredID)
	e.MergedInto = toEntityIDPtr(mergedInto)
	return &e, inserted, nil
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

func entityIDPtr(v *id.EntityID) *uuid.UUID {
	if v == nil {
		return nil
	}
	u := uuid.UUID(*v)
	return &u
}

func toEntityIDPtr(v *uuid.UUID) *id.EntityID {
	if v == nil {
		return nil
	}
	e := id.EntityID(*v)
	return &e
}
