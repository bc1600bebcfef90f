package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/crossbot/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a new OpportunityStore backed by the given
// connection pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const oppSelectCols = `id, kalshi_market_id, poly_market_id, kalshi_title, poly_title,
	match_confidence, match_method, strategy, kalshi_price, poly_price,
	size, gross_profit, total_fees, net_profit, total_cost, roi, detected_at`

// Insert stores a new evaluated opportunity.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.Opportunity) error {
	const query = `
		INSERT INTO opportunities (
			id, kalshi_market_id, poly_market_id, kalshi_title, poly_title,
			match_confidence, match_method, strategy, kalshi_price, poly_price,
			size, gross_profit, total_fees, net_profit, total_cost, roi, detected_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17
		)`

	_, err := s.pool.Exec(ctx, query,
		opp.ID, opp.Pair.Kalshi.ID, opp.Pair.Polymarket.ID, opp.Pair.Kalshi.Title, opp.Pair.Polymarket.Title,
		opp.Pair.Confidence, string(opp.Pair.Method), string(opp.Strategy), opp.KalshiPrice, opp.PolyPrice,
		opp.Size, opp.GrossProfit, opp.TotalFees, opp.NetProfit, opp.TotalCost, opp.ROI, opp.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// ListRecent returns the most recent opportunities ordered by detection time.
// The listing snapshots on the returned pair carry only identity and title;
// live prices are not round-tripped through the database.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	query := `SELECT ` + oppSelectCols + ` FROM opportunities ORDER BY detected_at DESC`
	args := []any{}

	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.Opportunity
	for rows.Next() {
		var (
			opp              domain.Opportunity
			method, strategy string
		)
		if err := rows.Scan(
			&opp.ID, &opp.Pair.Kalshi.ID, &opp.Pair.Polymarket.ID, &opp.Pair.Kalshi.Title, &opp.Pair.Polymarket.Title,
			&opp.Pair.Confidence, &method, &strategy, &opp.KalshiPrice, &opp.PolyPrice,
			&opp.Size, &opp.GrossProfit, &opp.TotalFees, &opp.NetProfit, &opp.TotalCost, &opp.ROI, &opp.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opp.Pair.Kalshi.Venue = domain.VenueKalshi
		opp.Pair.Polymarket.Venue = domain.VenuePolymarket
		opp.Pair.Method = domain.MatchMethod(method)
		opp.Strategy = domain.ArbStrategy(strategy)
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities rows: %w", err)
	}
	return opps, nil
}

// Compile-time interface check.
var _ domain.OpportunityStore = (*OpportunityStore)(nil)
