package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

// DecisionStore implements domain.DecisionStore using PostgreSQL. Agent
// votes are stored as a JSONB column since they are written once and only
// read back whole.
type DecisionStore struct {
	pool *pgxpool.Pool
}

// NewDecisionStore creates a new DecisionStore backed by the given
// connection pool.
func NewDecisionStore(pool *pgxpool.Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

const decisionSelectCols = `id, opportunity_id, approve, size, confidence, votes, degraded, reasoning, decided_at`

// Insert stores a new council decision.
func (s *DecisionStore) Insert(ctx context.Context, d domain.Decision) error {
	votes, err := json.Marshal(d.Votes)
	if err != nil {
		return fmt.Errorf("postgres: marshal votes for %s: %w", d.ID, err)
	}

	const query = `
		INSERT INTO decisions (
			id, opportunity_id, approve, size, confidence, votes, degraded, reasoning, decided_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = s.pool.Exec(ctx, query,
		d.ID, d.OpportunityID, d.Approve, d.Size, d.Confidence, votes, d.Degraded, d.Reasoning, d.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert decision %s: %w", d.ID, err)
	}
	return nil
}

// ListRecent returns the most recent decisions ordered by decision time.
func (s *DecisionStore) ListRecent(ctx context.Context, limit int) ([]domain.Decision, error) {
	query := `SELECT ` + decisionSelectCols + ` FROM decisions ORDER BY decided_at DESC`
	args := []any{}

	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	return s.queryDecisions(ctx, query, args...)
}

// ListBefore returns up to limit decisions decided before the given time,
// oldest first. Used by the archiver to page through cold records.
func (s *DecisionStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.Decision, error) {
	query := `SELECT ` + decisionSelectCols + ` FROM decisions WHERE decided_at < $1 ORDER BY decided_at ASC`
	args := []any{before}

	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	return s.queryDecisions(ctx, query, args...)
}

// DeleteBefore removes decisions decided before the given time and returns
// the number of rows deleted.
func (s *DecisionStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM decisions WHERE decided_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete decisions before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

func (s *DecisionStore) queryDecisions(ctx context.Context, query string, args ...any) ([]domain.Decision, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []domain.Decision
	for rows.Next() {
		var (
			d     domain.Decision
			votes []byte
		)
		if err := rows.Scan(
			&d.ID, &d.OpportunityID, &d.Approve, &d.Size, &d.Confidence, &votes, &d.Degraded, &d.Reasoning, &d.DecidedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan decision: %w", err)
		}
		if len(votes) > 0 {
			if err := json.Unmarshal(votes, &d.Votes); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal votes for %s: %w", d.ID, err)
			}
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: query decisions rows: %w", err)
	}
	return decisions, nil
}

// Compile-time interface check.
var _ domain.DecisionStore = (*DecisionStore)(nil)
