package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OkeyDezz/FloatHunter-Discord/internal/domain"
)

// ReferenceCache is a read-through cache in front of a domain.ReferenceStore.
// Each record is a hash at "ref:{itemKey}" with fields "key", "price" and
// "liquidity", expiring after the configured TTL. A cache failure falls back
// to the inner store; the cache can never make a lookup fail.
type ReferenceCache struct {
	rdb   *redis.Client
	inner domain.ReferenceStore
	ttl   time.Duration
}

// NewReferenceCache wraps inner with a Redis read-through cache.
func NewReferenceCache(c *Client, inner domain.ReferenceStore, ttl time.Duration) *ReferenceCache {
	return &ReferenceCache{rdb: c.Underlying(), inner: inner, ttl: ttl}
}

func refKey(itemKey string) string {
	return "ref:" + itemKey
}

// Lookup returns the cached record when present, otherwise queries the inner
// store and populates the cache. ErrNotFound from the inner store is passed
// through uncached so newly aggregated items appear without waiting for a TTL.
func (rc *ReferenceCache) Lookup(ctx context.Context, itemKey string) (domain.ReferenceRecord, error) {
	if rec, ok := rc.get(ctx, itemKey); ok {
		return rec, nil
	}

	rec, err := rc.inner.Lookup(ctx, itemKey)
	if err != nil {
		return domain.ReferenceRecord{}, err
	}

	rc.set(ctx, itemKey, rec)
	return rec, nil
}

func (rc *ReferenceCache) get(ctx context.Context, itemKey string) (domain.ReferenceRecord, bool) {
	vals, err := rc.rdb.HGetAll(ctx, refKey(itemKey)).Result()
	if err != nil || len(vals) == 0 {
		return domain.ReferenceRecord{}, false
	}

	price, err := strconv.ParseFloat(vals["price"], 64)
	if err != nil {
		return domain.ReferenceRecord{}, false
	}
	liquidity, err := strconv.ParseFloat(vals["liquidity"], 64)
	if err != nil {
		return domain.ReferenceRecord{}, false
	}

	return domain.ReferenceRecord{
		Key:            vals["key"],
		ReferencePrice: price,
		LiquidityScore: liquidity,
	}, true
}

func (rc *ReferenceCache) set(ctx context.Context, itemKey string, rec domain.ReferenceRecord) {
	key := refKey(itemKey)
	fields := map[string]interface{}{
		"key":       rec.Key,
		"price":     strconv.FormatFloat(rec.ReferencePrice, 'f', -1, 64),
		"liquidity": strconv.FormatFloat(rec.LiquidityScore, 'f', -1, 64),
	}

	// Best-effort; on failure the next lookup goes to the store again.
	pipe := rc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, rc.ttl)
	_, _ = pipe.Exec(ctx)
}

// Compile-time interface check.
var _ domain.ReferenceStore = (*ReferenceCache)(nil)
