package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "trapper/pkg/domain"
	txcontext "trapper/pkg/platform/tx"
)

// PostgresStore persists relationship edges and request links.
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

func (s *PostgresStore) AddEdge(ctx context.Context, e Edge) error {
	query := `
		INSERT INTO relationship_edges (entity_id, other_id, relationship_type)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(e.EntityID), uuid.UUID(e.OtherID), e.Relationship)
	if err != nil {
		return fmt.Errorf("insert edge: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddRequestLink(ctx context.Context, l RequestLink) error {
	query := `
		INSERT INTO request_links (request_id, entity_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(l.RequestID), uuid.UUID(l.EntityID), l.Role)
	if err != nil {
		return fmt.Errorf("insert request link: %w", err)
	}
	return nil
}

func (s *PostgresStore) EdgesFor(ctx context.Context, entityID id.EntityID) ([]Edge, error) {
	query := `
		SELECT entity_id, other_id, relationship_type
		FROM relationship_edges
		WHERE entity_id = $1 OR other_id = $1
		ORDER BY entity_id, other_id, relationship_type
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(entityID))
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var a, b uuid.UUID
		var rel string
		if err := rows.Scan(&a, &b, &rel); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		out = append(out, Edge{EntityID: id.EntityID(a), OtherID: id.EntityID(b), Relationship: rel})
	}
	return out, rows.Err()
}

func (s *PostgresStore) LinksFor(ctx context.Context, entityID id.EntityID) ([]RequestLink, error) {
	query := `
		SELECT request_id, entity_id, role
		FROM request_links
		WHERE entity_id = $1
		ORDER BY request_id, role
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(entityID))
	if err != nil {
		return nil, fmt.Errorf("list request links: %w", err)
	}
	defer rows.Close()

	var out []RequestLink
	for rows.Next() {
		var req, ent uuid.UUID
		var role string
		if err := rows.Scan(&req, &ent, &role); err != nil {
			return nil, fmt.Errorf("scan request link: %w", err)
		}
		out = append(out, RequestLink{RequestID: id.EntityID(req), EntityID: id.EntityID(ent), Role: role})
	}
	return out, rows.Err()
}

func (s *PostgresStore) RepointEdges(ctx context.Context, loser, winner id.EntityID) (int, error) {
	ex := s.execer(ctx)
	l, w := uuid.UUID(loser), uuid.UUID(winner)

	// Drop loser edges that would collide with an edge the winner already
	// has, and loser<->winner edges that would become self-loops. Deleting
	// first keeps the UPDATE from tripping the primary key.
	dedupe := `
		DELETE FROM relationship_edges e
		WHERE (e.entity_id = $1 OR e.other_id = $1)
		  AND (
			(e.entity_id = $1 AND e.other_id = $2) OR
			(e.entity_id = $2 AND e.other_id = $1) OR
			EXISTS (
				SELECT 1 FROM relationship_edges w
				WHERE w.relationship_type = e.relationship_type
				  AND w.entity_id = CASE WHEN e.entity_id = $1 THEN $2 ELSE e.entity_id END
				  AND w.other_id   = CASE WHEN e.other_id  = $1 THEN $2 ELSE e.other_id END
			)
		  )
	`
	if _, err := ex.ExecContext(ctx, dedupe, l, w); err != nil {
		return 0, fmt.Errorf("dedupe edges: %w", err)
	}

	res, err := ex.ExecContext(ctx,
		`UPDATE relationship_edges SET entity_id = $2 WHERE entity_id = $1`, l, w)
	if err != nil {
		return 0, fmt.Errorf("repoint edge entity_id: %w", err)
	}
	nA, _ := res.RowsAffected()

	res, err = ex.ExecContext(ctx,
		`UPDATE relationship_edges SET other_id = $2 WHERE other_id = $1`, l, w)
	if err != nil {
		return 0, fmt.Errorf("repoint edge other_id: %w", err)
	}
	nB, _ := res.RowsAffected()

	return int(nA + nB), nil
}

func (s *PostgresStore) RepointRequestLinks(ctx context.Context, loser, winner id.EntityID) (int, error) {
	ex := s.execer(ctx)
	l, w := uuid.UUID(loser), uuid.UUID(winner)

	dedupe := `
		DELETE FROM request_links l
		WHERE l.entity_id = $1
		  AND EXISTS (
			SELECT 1 FROM request_links w
			WHERE w.request_id = l.request_id AND w.entity_id = $2 AND w.role = l.role
		  )
	`
	if _, err := ex.ExecContext(ctx, dedupe, l, w); err != nil {
		return 0, fmt.Errorf("dedupe request links: %w", err)
	}

	res, err := ex.ExecContext(ctx,
		`UPDATE request_links SET entity_id = $2 WHERE entity_id = $1`, l, w)
	if err != nil {
		return 0, fmt.Errorf("repoint request links: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *PostgresStore) RepointScalarReferences(ctx context.Context, loser, winner id.EntityID) (int, error) {
	ex := s.execer(ctx)
	l, w := uuid.UUID(loser), uuid.UUID(winner)

	var total int64
	res, err := ex.ExecContext(ctx,
		`UPDATE requests SET primary_place_id = $2 WHERE primary_place_id = $1`, l, w)
	if err != nil {
		return 0, fmt.Errorf("repoint primary place: %w", err)
	}
	n, _ := res.RowsAffected()
	total += n

	res, err = ex.ExecContext(ctx,
		`UPDATE requests SET primary_person_id = $2 WHERE primary_person_id = $1`, l, w)
	if err != nil {
		return 0, fmt.Errorf("repoint primary person: %w", err)
	}
	n, _ = res.RowsAffected()
	total += n

	return int(total), nil
}

func (s *PostgresStore) CountReferences(ctx context.Context, entityID id.EntityID) (int, error) {
	query := `
		SELECT
			(SELECT count(*) FROM relationship_edges WHERE entity_id = $1 OR other_id = $1) +
			(SELECT count(*) FROM request_links WHERE entity_id = $1) +
			(SELECT count(*) FROM requests WHERE primary_place_id = $1 OR primary_person_id = $1) +
			(SELECT count(*) FROM identifiers WHERE person_id = $1)
	`
	var n int
	if err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(entityID)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count references: %w", err)
	}
	return n, nil
}
