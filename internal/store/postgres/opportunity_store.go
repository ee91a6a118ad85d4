package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OkeyDezz/FloatHunter-Discord/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a new OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const opportunitySelectCols = `id, item_key, normalized_price, reference_price,
	profit_pct, liquidity_score, passed_profit, passed_liquidity, passed_price,
	evaluated_at`

func scanOpportunityRows(rows pgx.Rows) ([]domain.OpportunityResult, error) {
	var results []domain.OpportunityResult
	for rows.Next() {
		var r domain.OpportunityResult
		if err := rows.Scan(
			&r.ID, &r.Key, &r.NormalizedPrice, &r.ReferencePrice,
			&r.ProfitPct, &r.LiquidityScore,
			&r.PassedProfit, &r.PassedLiquidity, &r.PassedPrice,
			&r.EvaluatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Record inserts one evaluated opportunity. Duplicate IDs are silently
// skipped so a retried dispatch cannot double-log.
func (s *OpportunityStore) Record(ctx context.Context, result domain.OpportunityResult) error {
	const query = `
		INSERT INTO opportunities (
			id, item_key, normalized_price, reference_price,
			profit_pct, liquidity_score,
			passed_profit, passed_liquidity, passed_price,
			evaluated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		result.ID, result.Key, result.NormalizedPrice, result.ReferencePrice,
		result.ProfitPct, result.LiquidityScore,
		result.PassedProfit, result.PassedLiquidity, result.PassedPrice,
		result.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record opportunity %s: %w", result.Key, err)
	}
	return nil
}

// ListBefore returns all opportunities evaluated strictly before the given
// time, oldest first (for archiving).
func (s *OpportunityStore) ListBefore(ctx context.Context, before time.Time) ([]domain.OpportunityResult, error) {
	query := `SELECT ` + opportunitySelectCols + ` FROM opportunities
		WHERE evaluated_at < $1 ORDER BY evaluated_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities before: %w", err)
	}
	defer rows.Close()

	results, err := scanOpportunityRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan opportunities: %w", err)
	}
	return results, nil
}

// DeleteBefore deletes opportunities evaluated before the given time and
// returns the number deleted.
func (s *OpportunityStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM opportunities WHERE evaluated_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete opportunities before: %w", err)
	}
	return tag.RowsAffected(), nil
}
