package domain

import (
	"context"
	"time"
)

// OpportunityResult is the outcome of evaluating one item event against the
// reference store and the configured filters. It is created by the evaluator
// and consumed exactly once by the notification dispatcher.
type OpportunityResult struct {
	ID              string
	Key             string
	NormalizedPrice float64 // listing price converted to USD
	ReferencePrice  float64
	ProfitPct       float64
	LiquidityScore  float64
	PassedProfit    bool
	PassedLiquidity bool
	PassedPrice     bool
	EvaluatedAt     time.Time
}

// Passed reports whether the result cleared all three filters and should be
// forwarded to the notification sink.
func (r OpportunityResult) Passed() bool {
	return r.PassedProfit && r.PassedLiquidity && r.PassedPrice
}

// OpportunityStore records qualifying opportunities for later review.
// Recording is best-effort; failures never affect the evaluation pipeline.
type OpportunityStore interface {
	Record(ctx context.Context, result OpportunityResult) error
	ListBefore(ctx context.Context, before time.Time) ([]OpportunityResult, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
