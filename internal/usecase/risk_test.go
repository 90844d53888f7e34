package usecase

import (
	"context"
	"testing"
	"time"

	"PatternTrade/internal/domain/models"
	"PatternTrade/pkg/logger"
	"PatternTrade/pkg/metrics"
)

func testRiskConfig() *models.RiskConfiguration {
	return &models.RiskConfiguration{
		ID:                "cfg-1",
		UserID:            "u1",
		StartTradeDate:    "2023-06-01",
		EndTradeDate:      "2023-06-30",
		Symbols:           []string{"NIFTY"},
		Algos:             []models.AlgoType{models.HammerPatternAlgo},
		MaxTradeCount:     20,
		MaxSLHitCount:     3,
		MaxTargetHitCount: 5,
		TargetPnL:         5000,
		MaxRiskCapacity:   2000,
		MaxTradeCapital:   10000,
		Timeframe:         models.TF5m,
	}
}

func seededRiskManager(t *testing.T, cfg *models.RiskConfiguration) (*RiskManager, *memRiskStore) {
	t.Helper()
	store := newMemRiskStore(cfg)
	rm := NewRiskManager(store, logger.Nop(), metrics.Noop())
	if err := rm.EnsureDay(context.Background(), "2023-06-01", "NIFTY"); err != nil {
		t.Fatalf("EnsureDay: %v", err)
	}
	return rm, store
}

func TestRiskSeedsStateOncePerDay(t *testing.T) {
	rm, store := seededRiskManager(t, testRiskConfig())
	ctx := context.Background()

	key := models.RiskStateKey("2023-06-01", "NIFTY", "cfg-1")
	st, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("expected seeded state: %v", err)
	}
	if !st.Eligible || st.CurrentUsedTradeCapital != 0 || st.MaxTradeCapital != 10000 {
		t.Fatalf("seeded state wrong: %+v", st)
	}

	// A second EnsureDay must not reset accumulated usage.
	st.CurrentUsedTradeCapital = 3000
	if err := store.Put(ctx, st); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := rm.EnsureDay(ctx, "2023-06-01", "NIFTY"); err != nil {
		t.Fatalf("EnsureDay: %v", err)
	}
	st, _ = store.Get(ctx, key)
	if st.CurrentUsedTradeCapital != 3000 {
		t.Fatalf("re-seeding overwrote usage: %v", st.CurrentUsedTradeCapital)
	}
}

func TestRiskCapitalCeilingFlipsEligibility(t *testing.T) {
	rm, store := seededRiskManager(t, testRiskConfig())
	ctx := context.Background()
	key := models.RiskStateKey("2023-06-01", "NIFTY", "cfg-1")

	st, _ := store.Get(ctx, key)
	st.CurrentUsedTradeCapital = 8000
	if err := store.Put(ctx, st); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ok, reason, err := rm.IsOrderTradeable(ctx, key, 5000)
	if err != nil {
		t.Fatalf("IsOrderTradeable: %v", err)
	}
	if ok {
		t.Fatalf("order over the capital ceiling must be rejected")
	}
	if reason != models.ReasonMaxTradeCapital {
		t.Fatalf("reason = %q, want %q", reason, models.ReasonMaxTradeCapital)
	}

	// The rejection itself is a state transition.
	st, _ = store.Get(ctx, key)
	if st.Eligible {
		t.Fatalf("capital rejection must flip eligibility off")
	}
	if st.NotEligibleReason != models.ReasonMaxTradeCapital {
		t.Fatalf("persisted reason = %q", st.NotEligibleReason)
	}

	// Later attempts fail fast with the stored reason even if small.
	ok, reason, err = rm.IsOrderTradeable(ctx, key, 100)
	if err != nil || ok {
		t.Fatalf("ineligible key accepted an order: ok=%v err=%v", ok, err)
	}
	if reason != models.ReasonMaxTradeCapital {
		t.Fatalf("stored reason not returned: %q", reason)
	}
}

func TestRiskMissingStateRejects(t *testing.T) {
	rm := NewRiskManager(newMemRiskStore(), logger.Nop(), metrics.Noop())
	ok, reason, err := rm.IsOrderTradeable(context.Background(), "CPnL_2023-06-01_NIFTY_none", 100)
	if err != nil {
		t.Fatalf("IsOrderTradeable: %v", err)
	}
	if ok || reason != models.ReasonNoRiskState {
		t.Fatalf("missing state must reject: ok=%v reason=%q", ok, reason)
	}
}

func TestRiskPlacementDebitsCapital(t *testing.T) {
	rm, store := seededRiskManager(t, testRiskConfig())
	ctx := context.Background()
	key := models.RiskStateKey("2023-06-01", "NIFTY", "cfg-1")

	if err := rm.ApplyPlacement(ctx, key, 2500); err != nil {
		t.Fatalf("ApplyPlacement: %v", err)
	}
	st, _ := store.Get(ctx, key)
	if st.CurrentUsedTradeCapital != 2500 || st.CurrentTradeCount != 1 {
		t.Fatalf("placement not applied: %+v", st)
	}
}

func TestRiskClosureCountsStopLossHit(t *testing.T) {
	rm, store := seededRiskManager(t, testRiskConfig())
	ctx := context.Background()
	key := models.RiskStateKey("2023-06-01", "NIFTY", "cfg-1")

	placedAt := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	o := &models.Order{
		ID: 1, Symbol: "NIFTY", ConfigID: "cfg-1", UserID: "u1",
		Direction: models.Long, Quantity: 10,
		Phase: models.OrderPlaced, PlacedAt: placedAt,
	}
	if err := o.Execute(100, placedAt.Add(5*time.Minute)); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := o.Close(95, placedAt.Add(30*time.Minute)); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if o.ClosingProfit != -50 || o.IsProfitable {
		t.Fatalf("closing profit = %v profitable=%v, want -50/false", o.ClosingProfit, o.IsProfitable)
	}

	if err := rm.ApplyClosure(ctx, o); err != nil {
		t.Fatalf("ApplyClosure: %v", err)
	}
	st, _ := store.Get(ctx, key)
	if st.CurrentSLHitCount != 1 {
		t.Fatalf("sl hit count = %d, want 1", st.CurrentSLHitCount)
	}
	if st.CurrentTargetHitCount != 0 {
		t.Fatalf("target hit count = %d, want 0", st.CurrentTargetHitCount)
	}
	if st.CurrentPnL != -50 {
		t.Fatalf("pnl = %v, want -50", st.CurrentPnL)
	}
}

func TestRiskExhaustionBySLHits(t *testing.T) {
	rm, store := seededRiskManager(t, testRiskConfig())
	ctx := context.Background()
	key := models.RiskStateKey("2023-06-01", "NIFTY", "cfg-1")

	placedAt := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		o := &models.Order{
			ID: int64(i + 1), Symbol: "NIFTY", ConfigID: "cfg-1", UserID: "u1",
			Direction: models.Long, Quantity: 10,
			Phase: models.OrderPlaced, PlacedAt: placedAt,
		}
		o.Execute(100, placedAt)
		o.Close(99, placedAt.Add(time.Minute))
		if err := rm.ApplyClosure(ctx, o); err != nil {
			t.Fatalf("ApplyClosure %d: %v", i, err)
		}
	}

	st, _ := store.Get(ctx, key)
	if st.Eligible {
		t.Fatalf("three stop-loss hits must exhaust the budget")
	}
	if st.NotEligibleReason != models.ReasonMaxSLHits {
		t.Fatalf("reason = %q, want %q", st.NotEligibleReason, models.ReasonMaxSLHits)
	}
}

func TestRiskExhaustionByLossFloor(t *testing.T) {
	cfg := testRiskConfig()
	cfg.MaxSLHitCount = 100
	rm, store := seededRiskManager(t, cfg)
	ctx := context.Background()
	key := models.RiskStateKey("2023-06-01", "NIFTY", "cfg-1")

	placedAt := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	o := &models.Order{
		ID: 1, Symbol: "NIFTY", ConfigID: "cfg-1", UserID: "u1",
		Direction: models.Long, Quantity: 100,
		Phase: models.OrderPlaced, PlacedAt: placedAt,
	}
	o.Execute(100, placedAt)
	o.Close(75, placedAt.Add(time.Minute)) // -2500 against capacity 2000
	if err := rm.ApplyClosure(ctx, o); err != nil {
		t.Fatalf("ApplyClosure: %v", err)
	}

	st, _ := store.Get(ctx, key)
	if st.Eligible || st.NotEligibleReason != models.ReasonMaxRiskCapacity {
		t.Fatalf("loss floor breach: eligible=%v reason=%q", st.Eligible, st.NotEligibleReason)
	}
}

func TestRiskEligibleConfigsFiltering(t *testing.T) {
	cfg := testRiskConfig()
	rm, _ := seededRiskManager(t, cfg)
	ctx := context.Background()

	configs, err := rm.EligibleConfigs(ctx, "2023-06-01", "NIFTY", models.HammerPatternAlgo)
	if err != nil {
		t.Fatalf("EligibleConfigs: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("configs = %d, want 1", len(configs))
	}

	configs, err = rm.EligibleConfigs(ctx, "2023-06-01", "NIFTY", models.ShootingStarPatternAlgo)
	if err != nil {
		t.Fatalf("EligibleConfigs: %v", err)
	}
	if len(configs) != 0 {
		t.Fatalf("algo not in allow-list must yield no configs, got %d", len(configs))
	}

	configs, err = rm.EligibleConfigs(ctx, "2023-06-01", "BANKNIFTY", models.HammerPatternAlgo)
	if err != nil {
		t.Fatalf("EligibleConfigs: %v", err)
	}
	if len(configs) != 0 {
		t.Fatalf("uncovered symbol must yield no configs, got %d", len(configs))
	}
}
