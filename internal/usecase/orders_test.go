package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"PatternTrade/internal/domain/models"
	"PatternTrade/internal/domain/repository"
	"PatternTrade/pkg/logger"
	"PatternTrade/pkg/metrics"
)

func repositoryOrderFilter(symbol string) repository.OrderFilter {
	return repository.OrderFilter{Symbol: symbol}
}

func testOrderManager(t *testing.T, cfg *models.RiskConfiguration) (*OrderManager, *OrderBook, *memOrderStore, *memRiskStore) {
	t.Helper()
	riskStore := newMemRiskStore(cfg)
	rm := NewRiskManager(riskStore, logger.Nop(), metrics.Noop())
	if err := rm.EnsureDay(context.Background(), "2023-06-01", "NIFTY"); err != nil {
		t.Fatalf("EnsureDay: %v", err)
	}

	book := NewOrderBook()
	orderStore := newMemOrderStore()
	om := NewOrderManager(book, orderStore, rm, logger.Nop(), metrics.Noop(), 15, 15)
	return om, book, orderStore, riskStore
}

func testSignal(ts time.Time) *models.TradeSignal {
	return &models.TradeSignal{
		ID:          "sig-1",
		Candle:      *hammerCandle(ts),
		Direction:   models.Long,
		Algo:        models.HammerPatternAlgo,
		RequestedAt: ts.Add(5 * time.Minute),
		EntryPrice:  99,
		StopLoss:    90,
		Target:      111,
		Quantity:    10,
		Notional:    990,
	}
}

func TestDispatchCreatesPlacedOrder(t *testing.T) {
	om, book, store, _ := testOrderManager(t, testRiskConfig())
	ctx := context.Background()
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

	if err := om.Dispatch(ctx, testSignal(ts), "2023-06-01"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if book.Len() != 1 {
		t.Fatalf("ledger length = %d, want 1", book.Len())
	}

	orders, _ := store.Query(ctx, repositoryOrderFilter("NIFTY"))
	if len(orders) != 1 {
		t.Fatalf("persisted orders = %d, want 1", len(orders))
	}
	o := orders[0]
	if o.Phase != models.OrderPlaced || !o.IsTradeOpen() || o.IsTradeExecuted() {
		t.Fatalf("new order state wrong: %+v", o)
	}
	if o.DedupKey != models.OrderDedupKey("NIFTY", models.HammerPatternAlgo, "u1") {
		t.Fatalf("dedup key = %q", o.DedupKey)
	}
}

func TestDispatchDeduplicates(t *testing.T) {
	om, book, _, _ := testOrderManager(t, testRiskConfig())
	ctx := context.Background()
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

	if err := om.Dispatch(ctx, testSignal(ts), "2023-06-01"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := om.Dispatch(ctx, testSignal(ts.Add(5*time.Minute)), "2023-06-01"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if book.Len() != 1 {
		t.Fatalf("second dispatch for the same (symbol, algo, user) created an order: len=%d", book.Len())
	}
}

func TestDispatchConcurrentFuzz(t *testing.T) {
	om, book, store, _ := testOrderManager(t, testRiskConfig())
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = om.Dispatch(context.Background(), testSignal(ts), "2023-06-01")
		}()
	}
	wg.Wait()

	if book.Len() != 1 {
		t.Fatalf("concurrent dispatch produced %d open orders, want 1", book.Len())
	}
	orders, _ := store.Query(context.Background(), repositoryOrderFilter("NIFTY"))
	openCount := 0
	for _, o := range orders {
		if o.Phase != models.OrderClosed {
			openCount++
		}
	}
	if openCount != 1 {
		t.Fatalf("persisted open orders = %d, want 1", openCount)
	}
}

// failMarkOpenStore simulates the cache tier refusing the dedup marker
// write while everything else works.
type failMarkOpenStore struct {
	*memOrderStore
}

func (s *failMarkOpenStore) MarkOpen(context.Context, string) error {
	return errors.New("cache write refused")
}

func TestDispatchSurvivesDedupMarkerFailure(t *testing.T) {
	riskStore := newMemRiskStore(testRiskConfig())
	rm := NewRiskManager(riskStore, logger.Nop(), metrics.Noop())
	ctx := context.Background()
	if err := rm.EnsureDay(ctx, "2023-06-01", "NIFTY"); err != nil {
		t.Fatalf("EnsureDay: %v", err)
	}
	book := NewOrderBook()
	om := NewOrderManager(book, &failMarkOpenStore{newMemOrderStore()}, rm, logger.Nop(), metrics.Noop(), 15, 15)
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

	if err := om.Dispatch(ctx, testSignal(ts), "2023-06-01"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if book.Len() != 1 {
		t.Fatalf("dedup marker failure aborted placement: len=%d", book.Len())
	}

	// Capital usage must match the ledger: one order, one debit.
	st, err := riskStore.Get(ctx, models.RiskStateKey("2023-06-01", "NIFTY", "cfg-1"))
	if err != nil {
		t.Fatalf("Get risk state: %v", err)
	}
	if st.CurrentUsedTradeCapital != 990 || st.CurrentTradeCount != 1 {
		t.Fatalf("debit out of step with ledger: used=%v count=%d", st.CurrentUsedTradeCapital, st.CurrentTradeCount)
	}
}

func TestDispatchRejectedByRisk(t *testing.T) {
	cfg := testRiskConfig()
	cfg.MaxTradeCapital = 500 // below the signal's notional
	om, book, _, riskStore := testOrderManager(t, cfg)
	ctx := context.Background()
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

	if err := om.Dispatch(ctx, testSignal(ts), "2023-06-01"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if book.Len() != 0 {
		t.Fatalf("rejected signal created an order")
	}

	st, _ := riskStore.Get(ctx, models.RiskStateKey("2023-06-01", "NIFTY", "cfg-1"))
	if st.Eligible {
		t.Fatalf("capital rejection must flip eligibility")
	}
	// The reserved dedup key must be released on rejection.
	if !book.Reserve(models.OrderDedupKey("NIFTY", models.HammerPatternAlgo, "u1")) {
		t.Fatalf("dedup key left reserved after rejection")
	}
}

func TestExecutionOnEntryTrigger(t *testing.T) {
	om, book, _, _ := testOrderManager(t, testRiskConfig())
	ctx := context.Background()
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

	if err := om.Dispatch(ctx, testSignal(ts), "2023-06-01"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	// Open below entry: no fill.
	om.AdvanceExecution(ctx, candleAt("NIFTY", ts.Add(10*time.Minute), 98, 100, 97, 99, 50))
	if o := book.OpenOrders("NIFTY")[0]; o.Phase != models.OrderPlaced {
		t.Fatalf("filled below entry: %s", o.Phase)
	}

	// Open at entry: fill at the open.
	om.AdvanceExecution(ctx, candleAt("NIFTY", ts.Add(15*time.Minute), 99.5, 101, 98, 100, 50))
	o := book.OpenOrders("NIFTY")[0]
	if o.Phase != models.OrderExecuted {
		t.Fatalf("phase = %s, want Executed", o.Phase)
	}
	if o.FillPrice != 99.5 || o.EntryPrice != 99.5 {
		t.Fatalf("fill = %v entry = %v, want 99.5", o.FillPrice, o.EntryPrice)
	}
}

func TestClosureOnStopLoss(t *testing.T) {
	om, book, _, riskStore := testOrderManager(t, testRiskConfig())
	ctx := context.Background()
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

	if err := om.Dispatch(ctx, testSignal(ts), "2023-06-01"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	om.AdvanceExecution(ctx, candleAt("NIFTY", ts.Add(10*time.Minute), 100, 101, 98, 99, 50))

	// Close crosses the stop (90).
	om.AdvanceClosure(ctx, candleAt("NIFTY", ts.Add(15*time.Minute), 95, 96, 89, 89.5, 50))
	if book.Len() != 0 {
		t.Fatalf("closed order left in ledger")
	}

	st, _ := riskStore.Get(ctx, models.RiskStateKey("2023-06-01", "NIFTY", "cfg-1"))
	if st.CurrentSLHitCount != 1 {
		t.Fatalf("sl hit count = %d, want 1", st.CurrentSLHitCount)
	}

	// The dedup key frees up for a new trade.
	if err := om.Dispatch(ctx, testSignal(ts.Add(20*time.Minute)), "2023-06-01"); err != nil {
		t.Fatalf("Dispatch after closure: %v", err)
	}
	if book.Len() != 1 {
		t.Fatalf("dedup key not released after closure")
	}
}

func TestClosureOnTarget(t *testing.T) {
	om, book, store, riskStore := testOrderManager(t, testRiskConfig())
	ctx := context.Background()
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

	if err := om.Dispatch(ctx, testSignal(ts), "2023-06-01"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	om.AdvanceExecution(ctx, candleAt("NIFTY", ts.Add(10*time.Minute), 100, 101, 98, 99, 50))
	om.AdvanceClosure(ctx, candleAt("NIFTY", ts.Add(15*time.Minute), 110, 112, 109, 111.5, 50))

	if book.Len() != 0 {
		t.Fatalf("target-hit order left in ledger")
	}
	orders, _ := store.Query(ctx, repositoryOrderFilter("NIFTY"))
	o := orders[0]
	if !o.IsProfitable || o.ClosingProfit != (111.5-100)*10 {
		t.Fatalf("profit = %v profitable = %v", o.ClosingProfit, o.IsProfitable)
	}
	st, _ := riskStore.Get(ctx, models.RiskStateKey("2023-06-01", "NIFTY", "cfg-1"))
	if st.CurrentTargetHitCount != 1 {
		t.Fatalf("target hit count = %d, want 1", st.CurrentTargetHitCount)
	}
}

func TestClosureForcedAtCutoff(t *testing.T) {
	om, book, store, _ := testOrderManager(t, testRiskConfig())
	ctx := context.Background()
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

	if err := om.Dispatch(ctx, testSignal(ts), "2023-06-01"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	om.AdvanceExecution(ctx, candleAt("NIFTY", ts.Add(10*time.Minute), 100, 101, 98, 99, 50))

	// Close is inside stop/target; exactly 15:15:00 is not yet past
	// the cutoff, the first tick after it is.
	at := time.Date(2023, 6, 1, 15, 15, 0, 0, time.UTC)
	om.AdvanceClosure(ctx, candleAt("NIFTY", at, 100, 101, 99, 100.5, 50))
	if book.Len() != 1 {
		t.Fatalf("closed at exactly the cutoff instant")
	}

	late := time.Date(2023, 6, 1, 15, 20, 0, 0, time.UTC)
	om.AdvanceClosure(ctx, candleAt("NIFTY", late, 100, 101, 99, 100.5, 50))
	if book.Len() != 0 {
		t.Fatalf("cutoff did not force closure")
	}
	orders, _ := store.Query(ctx, repositoryOrderFilter("NIFTY"))
	o := orders[0]
	if o.Phase != models.OrderClosed || o.ExitPrice != 100.5 {
		t.Fatalf("forced closure wrong: phase=%s exit=%v", o.Phase, o.ExitPrice)
	}
}

func TestClosedOrderNeverReopens(t *testing.T) {
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	o := &models.Order{ID: 1, Direction: models.Long, Quantity: 10, Phase: models.OrderPlaced, PlacedAt: ts}
	if err := o.Execute(100, ts); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := o.Close(105, ts.Add(time.Minute)); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := o.Execute(100, ts.Add(2*time.Minute)); err == nil {
		t.Fatalf("closed order accepted Execute")
	}
	if err := o.Close(110, ts.Add(2*time.Minute)); err == nil {
		t.Fatalf("closed order accepted a second Close")
	}
}
