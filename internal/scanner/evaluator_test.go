package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/OkeyDezz/FloatHunter-Discord/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvalConfig() EvaluatorConfig {
	return EvaluatorConfig{
		Factor:          0.614,
		MinProfitPct:    5.0,
		MinLiquidity:    0.7,
		MinPrice:        1.0,
		MaxPrice:        1000.0,
		LookupTimeout:   time.Second,
		DispatchTimeout: time.Second,
	}
}

type fakeRefStore struct {
	record domain.ReferenceRecord
	err    error
	calls  int
}

func (f *fakeRefStore) Lookup(ctx context.Context, itemKey string) (domain.ReferenceRecord, error) {
	f.calls++
	if f.err != nil {
		return domain.ReferenceRecord{}, f.err
	}
	return f.record, nil
}

type fakeDispatcher struct {
	mu      sync.Mutex
	results []domain.OpportunityResult
	err     error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, result domain.OpportunityResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
	return f.err
}

func (f *fakeDispatcher) dispatched() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results)
}

func TestEvaluateEndToEnd(t *testing.T) {
	// 1000 coins at 0.614 -> $614.00 against a $650.00 reference is a
	// 5.86% edge, which clears a 5.0% minimum but not a 6.0% one.
	ev := domain.ItemEvent{Key: "AK47-RedLine", Price: 1000, Kind: domain.KindNew, ReceivedAt: time.Now()}
	ref := domain.ReferenceRecord{Key: "AK47-RedLine", ReferencePrice: 650.0, LiquidityScore: 0.8}

	cfg := testEvalConfig()
	result := Evaluate(ev, ref, cfg)

	if math.Abs(result.NormalizedPrice-614.0) > 1e-9 {
		t.Fatalf("normalized price = %v, want 614.0", result.NormalizedPrice)
	}
	wantProfit := ((650.0 - 614.0) / 614.0) * 100
	if math.Abs(result.ProfitPct-wantProfit) > 1e-9 {
		t.Fatalf("profit pct = %v, want %v", result.ProfitPct, wantProfit)
	}
	if !result.Passed() {
		t.Errorf("result should pass all filters: %+v", result)
	}

	cfg.MinProfitPct = 6.0
	result = Evaluate(ev, ref, cfg)
	if result.Passed() {
		t.Errorf("5.86%% profit should not pass a 6.0%% minimum")
	}
	if result.PassedProfit {
		t.Errorf("profit filter should fail at minProfit=6.0")
	}
}

func TestEvaluateThresholdsInclusive(t *testing.T) {
	cfg := EvaluatorConfig{
		Factor:       1.0,
		MinProfitPct: 5.0,
		MinLiquidity: 0.7,
		MinPrice:     10.0,
		MaxPrice:     100.0,
	}

	tests := []struct {
		name      string
		price     float64
		refPrice  float64
		liquidity float64
		want      bool
	}{
		{"profit exactly at minimum", 100, 105, 0.8, true},
		{"profit just below minimum", 100, 104.99, 0.8, false},
		{"liquidity exactly at minimum", 100, 110, 0.7, true},
		{"liquidity below minimum", 100, 110, 0.69, false},
		{"price at lower bound", 10, 11, 0.8, true},
		{"price at upper bound", 100, 110, 0.8, true},
		{"price below lower bound", 9.99, 11, 0.8, false},
		{"price above upper bound", 100.01, 111, 0.8, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := domain.ItemEvent{Key: "k", Price: tt.price}
			ref := domain.ReferenceRecord{Key: "k", ReferencePrice: tt.refPrice, LiquidityScore: tt.liquidity}
			got := Evaluate(ev, ref, cfg).Passed()
			if got != tt.want {
				t.Errorf("Passed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateZeroPrice(t *testing.T) {
	cfg := EvaluatorConfig{Factor: 1.0, MinProfitPct: 0, MinLiquidity: 0, MinPrice: 0, MaxPrice: 100}
	result := Evaluate(domain.ItemEvent{Key: "k"}, domain.ReferenceRecord{ReferencePrice: 10}, cfg)
	if result.PassedProfit {
		t.Errorf("zero normalized price must never pass the profit filter")
	}
}

func TestProcessDispatchesPassingResult(t *testing.T) {
	refs := &fakeRefStore{record: domain.ReferenceRecord{Key: "AK47-RedLine", ReferencePrice: 650.0, LiquidityScore: 0.8}}
	disp := &fakeDispatcher{}
	e := NewEvaluator(refs, disp, nil, testEvalConfig(), testLogger())

	ev := domain.ItemEvent{Key: "AK47-RedLine", Price: 1000, Kind: domain.KindNew, ReceivedAt: time.Now()}
	if err := e.Process(context.Background(), ev); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if disp.dispatched() != 1 {
		t.Fatalf("dispatched = %d, want 1", disp.dispatched())
	}
}

func TestProcessSkipsRemovedEvents(t *testing.T) {
	refs := &fakeRefStore{}
	disp := &fakeDispatcher{}
	e := NewEvaluator(refs, disp, nil, testEvalConfig(), testLogger())

	ev := domain.ItemEvent{Key: "AK47-RedLine", Price: 1000, Kind: domain.KindRemoved}
	if err := e.Process(context.Background(), ev); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if refs.calls != 0 {
		t.Errorf("removed events must not hit the reference store")
	}
}

func TestProcessSkipsOutOfRangeBeforeLookup(t *testing.T) {
	refs := &fakeRefStore{}
	disp := &fakeDispatcher{}
	e := NewEvaluator(refs, disp, nil, testEvalConfig(), testLogger())

	// 5000 coins -> $3070, above the $1000 ceiling.
	ev := domain.ItemEvent{Key: "AWP-DragonLore", Price: 5000, Kind: domain.KindNew}
	if err := e.Process(context.Background(), ev); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if refs.calls != 0 {
		t.Errorf("out-of-range items must not hit the reference store")
	}
	if disp.dispatched() != 0 {
		t.Errorf("out-of-range items must not be dispatched")
	}
}

func TestProcessToleratesNotFound(t *testing.T) {
	refs := &fakeRefStore{err: domain.ErrNotFound}
	disp := &fakeDispatcher{}
	e := NewEvaluator(refs, disp, nil, testEvalConfig(), testLogger())

	ev := domain.ItemEvent{Key: "AK47-RedLine", Price: 1000, Kind: domain.KindNew}
	if err := e.Process(context.Background(), ev); err != nil {
		t.Fatalf("NotFound must be skipped, got error: %v", err)
	}
	if disp.dispatched() != 0 {
		t.Errorf("NotFound items must not be dispatched")
	}
}

func TestProcessReturnsLookupFault(t *testing.T) {
	refs := &fakeRefStore{err: errors.New("store down")}
	disp := &fakeDispatcher{}
	e := NewEvaluator(refs, disp, nil, testEvalConfig(), testLogger())

	ev := domain.ItemEvent{Key: "AK47-RedLine", Price: 1000, Kind: domain.KindNew}
	if err := e.Process(context.Background(), ev); err == nil {
		t.Fatal("transient lookup error must surface as an evaluation fault")
	}
}

func TestProcessDropsFailedDispatch(t *testing.T) {
	refs := &fakeRefStore{record: domain.ReferenceRecord{Key: "AK47-RedLine", ReferencePrice: 650.0, LiquidityScore: 0.8}}
	disp := &fakeDispatcher{err: errors.New("sink unreachable")}
	e := NewEvaluator(refs, disp, nil, testEvalConfig(), testLogger())

	ev := domain.ItemEvent{Key: "AK47-RedLine", Price: 1000, Kind: domain.KindNew}
	if err := e.Process(context.Background(), ev); err != nil {
		t.Fatalf("notification failure must not become an evaluation fault: %v", err)
	}
}
