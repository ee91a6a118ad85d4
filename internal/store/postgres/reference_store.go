package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OkeyDezz/FloatHunter-Discord/internal/domain"
)

// ReferenceStore implements domain.ReferenceStore against the market_data and
// liquidity tables. Reference prices come from the external price aggregation
// job; the scanner only reads.
type ReferenceStore struct {
	pool *pgxpool.Pool
}

// NewReferenceStore creates a new ReferenceStore backed by the given pool.
func NewReferenceStore(pool *pgxpool.Pool) *ReferenceStore {
	return &ReferenceStore{pool: pool}
}

const referenceQuery = `
	SELECT m.item_key, m.price_buff163, COALESCE(l.liquidity_score, 0)
	FROM market_data m
	LEFT JOIN liquidity l ON l.item_key = m.item_key
	WHERE m.item_key = $1`

// Lookup returns the reference record for an item key. Listings arrive with
// the display market name, so a miss on the exact key retries with the
// normalized form before reporting ErrNotFound.
func (s *ReferenceStore) Lookup(ctx context.Context, itemKey string) (domain.ReferenceRecord, error) {
	rec, err := s.lookupKey(ctx, itemKey)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.ReferenceRecord{}, err
	}

	normalized := NormalizeKey(itemKey)
	if normalized == itemKey {
		return domain.ReferenceRecord{}, err
	}
	return s.lookupKey(ctx, normalized)
}

func (s *ReferenceStore) lookupKey(ctx context.Context, key string) (domain.ReferenceRecord, error) {
	var rec domain.ReferenceRecord
	err := s.pool.QueryRow(ctx, referenceQuery, key).
		Scan(&rec.Key, &rec.ReferencePrice, &rec.LiquidityScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ReferenceRecord{}, fmt.Errorf("postgres: reference %q: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ReferenceRecord{}, fmt.Errorf("postgres: lookup reference %q: %w", key, err)
	}
	return rec, nil
}

// NormalizeKey converts a display market name into the canonical item key the
// aggregation job writes: lowercase, trademark glyphs stripped, whitespace
// collapsed to single hyphens.
func NormalizeKey(marketName string) string {
	key := strings.ToLower(marketName)
	key = strings.ReplaceAll(key, "™", "")
	key = strings.ReplaceAll(key, "|", " ")
	key = strings.ReplaceAll(key, "(", " ")
	key = strings.ReplaceAll(key, ")", " ")
	return strings.Join(strings.Fields(key), "-")
}
