package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/OkeyDezz/FloatHunter-Discord/internal/domain"
	"github.com/OkeyDezz/FloatHunter-Discord/internal/pricing"
)

// Dispatcher delivers a qualifying opportunity to the notification sink.
// Delivery is best-effort; a failure is logged and the result dropped.
type Dispatcher interface {
	Dispatch(ctx context.Context, result domain.OpportunityResult) error
}

// EvaluatorConfig holds the filter thresholds and per-call timeouts.
type EvaluatorConfig struct {
	// Factor converts marketplace coins into USD.
	Factor float64

	// MinProfitPct is the minimum profit percentage, inclusive.
	MinProfitPct float64

	// MinLiquidity is the minimum liquidity score, inclusive.
	MinLiquidity float64

	// MinPrice and MaxPrice bound the normalized USD price, inclusive.
	MinPrice float64
	MaxPrice float64

	// LookupTimeout bounds each reference-store call.
	LookupTimeout time.Duration

	// DispatchTimeout bounds each notification delivery.
	DispatchTimeout time.Duration
}

// Evaluator turns item events into opportunity results: it normalizes the
// listing price, cross-references the reference store, applies the three
// filters, and forwards passing results to the dispatcher. A failed filter is
// an expected outcome, not a fault.
type Evaluator struct {
	refs       domain.ReferenceStore
	dispatcher Dispatcher
	log        domain.OpportunityStore // optional
	cfg        EvaluatorConfig
	logger     *slog.Logger
}

// NewEvaluator creates an Evaluator. store may be nil to disable the
// best-effort opportunity log.
func NewEvaluator(refs domain.ReferenceStore, dispatcher Dispatcher, store domain.OpportunityStore, cfg EvaluatorConfig, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		refs:       refs,
		dispatcher: dispatcher,
		log:        store,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "evaluator")),
	}
}

// Evaluate combines a normalized price and a reference record into an
// OpportunityResult. Pure; the inclusive threshold semantics live here.
func Evaluate(ev domain.ItemEvent, ref domain.ReferenceRecord, cfg EvaluatorConfig) domain.OpportunityResult {
	normalized := pricing.Normalize(ev.Price, cfg.Factor)

	var profitPct float64
	if normalized > 0 {
		profitPct = ((ref.ReferencePrice - normalized) / normalized) * 100
	}

	return domain.OpportunityResult{
		ID:              uuid.NewString(),
		Key:             ev.Key,
		NormalizedPrice: normalized,
		ReferencePrice:  ref.ReferencePrice,
		ProfitPct:       profitPct,
		LiquidityScore:  ref.LiquidityScore,
		PassedProfit:    normalized > 0 && profitPct >= cfg.MinProfitPct,
		PassedLiquidity: ref.LiquidityScore >= cfg.MinLiquidity,
		PassedPrice:     normalized >= cfg.MinPrice && normalized <= cfg.MaxPrice,
		EvaluatedAt:     ev.ReceivedAt,
	}
}

// Process evaluates one item event end to end. It returns a non-nil error
// only for evaluation faults (lookup failure or timeout); filtered items and
// notification failures return nil because they are expected outcomes.
func (e *Evaluator) Process(ctx context.Context, ev domain.ItemEvent) error {
	if ev.Kind == domain.KindRemoved {
		return nil
	}

	// Cheap price-range gate before touching the reference store.
	normalized := pricing.Normalize(ev.Price, e.cfg.Factor)
	if normalized < e.cfg.MinPrice || normalized > e.cfg.MaxPrice {
		e.logger.Debug("item outside price range",
			slog.String("key", ev.Key),
			slog.Float64("price_usd", normalized),
		)
		return nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.cfg.LookupTimeout)
	ref, err := e.refs.Lookup(lookupCtx, ev.Key)
	cancel()
	if errors.Is(err, domain.ErrNotFound) {
		e.logger.Debug("no reference data", slog.String("key", ev.Key))
		return nil
	}
	if err != nil {
		return fmt.Errorf("evaluator: lookup %s: %w", ev.Key, err)
	}

	result := Evaluate(ev, ref, e.cfg)
	if !result.Passed() {
		e.logger.Debug("item filtered",
			slog.String("key", ev.Key),
			slog.Float64("profit_pct", result.ProfitPct),
			slog.Float64("liquidity", result.LiquidityScore),
		)
		return nil
	}

	e.logger.Info("opportunity found",
		slog.String("key", result.Key),
		slog.Float64("price_usd", result.NormalizedPrice),
		slog.Float64("reference_usd", result.ReferencePrice),
		slog.Float64("profit_pct", result.ProfitPct),
		slog.Float64("liquidity", result.LiquidityScore),
	)

	dispatchCtx, cancel := context.WithTimeout(ctx, e.cfg.DispatchTimeout)
	err = e.dispatcher.Dispatch(dispatchCtx, result)
	cancel()
	if err != nil {
		// Notification delivery is fire-and-forget; drop and move on.
		e.logger.Error("dispatch failed",
			slog.String("key", result.Key),
			slog.String("error", err.Error()),
		)
	}

	if e.log != nil {
		recordCtx, cancel := context.WithTimeout(ctx, e.cfg.DispatchTimeout)
		if err := e.log.Record(recordCtx, result); err != nil {
			e.logger.Warn("opportunity log failed",
				slog.String("key", result.Key),
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}

	return nil
}
