package domain

import "context"

// ReferenceRecord holds the external reference price and liquidity score for
// an item. It is fetched per evaluation and discarded; the core never keeps a
// mutable copy.
type ReferenceRecord struct {
	Key            string
	ReferencePrice float64 // USD
	LiquidityScore float64 // 0.0 - 1.0
}

// ReferenceStore is the read-only query interface against the external
// reference-price/liquidity store. Lookup returns ErrNotFound when the item
// is unknown; callers must bound the call with a context deadline.
type ReferenceStore interface {
	Lookup(ctx context.Context, itemKey string) (ReferenceRecord, error)
}
