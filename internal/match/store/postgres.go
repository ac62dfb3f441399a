package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"trapper/internal/match/models"
	id "trapper/pkg/domain"
	txcontext "trapper/pkg/platform/tx"
)

// PostgresStore persists the person match review queue.
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

func (s *PostgresStore) Upsert(ctx context.Context, c *models.ReviewCandidate) error {
	evidence, err := json.Marshal(c.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}
	query := `
		INSERT INTO person_match_candidates
			(source_system, source_record_id, candidate_person_id, confidence, evidence, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source_system, source_record_id, candidate_person_id)
		DO UPDATE SET
			confidence = GREATEST(person_match_candidates.confidence, excluded.confidence),
			evidence   = excluded.evidence
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		c.SourceSystem, c.SourceRecordID, uuid.UUID(c.CandidatePersonID),
		c.Confidence, evidence, c.Status)
	if err != nil {
		return fmt.Errorf("upsert match candidate: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySource(ctx context.Context, sourceSystem, sourceRecordID string) ([]*models.ReviewCandidate, error) {
	query := `
		SELECT source_system, source_record_id, candidate_person_id, confidence, evidence, status, created_at
		FROM person_match_candidates
		WHERE source_system = $1 AND source_record_id = $2
		ORDER BY confidence DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, sourceSystem, sourceRecordID)
	if err != nil {
		return nil, fmt.Errorf("list match candidates: %w", err)
	}
	defer rows.Close()

	var out []*models.ReviewCandidate
	for rows.Next() {
		var (
			c        models.ReviewCandidate
			personID uuid.UUID
			evidence []byte
		)
		err := rows.Scan(&c.SourceSystem, &c.SourceRecordID, &personID,
			&c.Confidence, &evidence, &c.Status, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan match candidate: %w", err)
		}
		c.CandidatePersonID = id.EntityID(personID)
		if len(evidence) > 0 {
			if err := json.Unmarshal(evidence, &c.Evidence); err != nil {
				return nil, fmt.Errorf("unmarshal evidence: %w", err)
			}
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
