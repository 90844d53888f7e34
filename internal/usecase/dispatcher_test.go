package usecase

import (
	"context"
	"testing"
	"time"

	"PatternTrade/internal/domain/models"
	"PatternTrade/pkg/logger"
	"PatternTrade/pkg/metrics"
)

func testDispatcher(t *testing.T) (*Dispatcher, *OrderBook, *memOrderStore, *memSignalStore, *memPatternStore) {
	t.Helper()

	riskStore := newMemRiskStore(testRiskConfig())
	rm := NewRiskManager(riskStore, logger.Nop(), metrics.Noop())

	tracker := NewMarketStateTracker(newMemSnapshotStore(), logger.Nop(), testEngineConfig())
	book := NewOrderBook()
	orderStore := newMemOrderStore()
	om := NewOrderManager(book, orderStore, rm, logger.Nop(), metrics.Noop(), 15, 15)

	signalStore := newMemSignalStore()
	patternStore := newMemPatternStore()

	d := NewDispatcher(
		tracker,
		[]PatternDetector{NewHammerDetector(testHammerConfig())},
		om,
		rm,
		newMemCandleStore(),
		patternStore,
		signalStore,
		logger.Nop(),
		metrics.Noop(),
	)
	return d, book, orderStore, signalStore, patternStore
}

// Full pipeline: three red candles build the streak, the hammer candle
// fires a signal, the same tick fills the order, a later candle closes
// it at the stop.
func TestDispatcherEndToEnd(t *testing.T) {
	d, book, orderStore, signalStore, patternStore := testDispatcher(t)
	ctx := context.Background()

	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	reds := [][4]float64{{100, 101, 97, 98}, {98, 99, 95, 96}, {96, 97, 93, 94}}
	for i, r := range reds {
		c := candleAt("NIFTY", ts.Add(time.Duration(i)*5*time.Minute), r[0], r[1], r[2], r[3], 50)
		if err := d.ProcessTick(ctx, c); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	if book.Len() != 0 {
		t.Fatalf("orders created before any pattern matched")
	}

	// Hammer: body 2, lower wick 8, upper wick 0.5, opening at the
	// level the signal's entry sits just under.
	hammer := candleAt("NIFTY", ts.Add(15*time.Minute), 100, 100.5, 90, 98, 80)
	if err := d.ProcessTick(ctx, hammer); err != nil {
		t.Fatalf("hammer tick: %v", err)
	}

	if len(patternStore.patterns) != 1 {
		t.Fatalf("pattern candles persisted = %d, want 1", len(patternStore.patterns))
	}
	if len(signalStore.signals) != 1 {
		t.Fatalf("signals persisted = %d, want 1", len(signalStore.signals))
	}
	if book.Len() != 1 {
		t.Fatalf("open orders = %d, want 1", book.Len())
	}
	o := book.OpenOrders("NIFTY")[0]
	if o.Phase != models.OrderExecuted {
		t.Fatalf("same-tick fill expected: phase = %s", o.Phase)
	}

	// Stop sits at entry-(wick+margin) = 90; this close crosses it.
	if err := d.ProcessTick(ctx, candleAt("NIFTY", ts.Add(20*time.Minute), 95, 95.5, 88, 89, 60)); err != nil {
		t.Fatalf("closing tick: %v", err)
	}
	if book.Len() != 0 {
		t.Fatalf("stop breach did not close the order")
	}

	orders, _ := orderStore.Query(ctx, repositoryOrderFilter("NIFTY"))
	if len(orders) != 1 {
		t.Fatalf("persisted orders = %d, want 1", len(orders))
	}
	closed := orders[0]
	if closed.Phase != models.OrderClosed || closed.IsProfitable {
		t.Fatalf("closed order wrong: %+v", closed)
	}
}

func TestDispatcherSkipsDuplicateSignalSameDay(t *testing.T) {
	d, book, _, _, _ := testDispatcher(t)
	ctx := context.Background()
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

	reds := [][4]float64{{100, 101, 97, 98}, {98, 99, 95, 96}, {96, 97, 93, 94}}
	for i, r := range reds {
		if err := d.ProcessTick(ctx, candleAt("NIFTY", ts.Add(time.Duration(i)*5*time.Minute), r[0], r[1], r[2], r[3], 50)); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}

	// Two consecutive hammers: the second signal must be deduplicated
	// while the first order is still open.
	if err := d.ProcessTick(ctx, candleAt("NIFTY", ts.Add(15*time.Minute), 100, 100.5, 90, 98, 80)); err != nil {
		t.Fatalf("first hammer: %v", err)
	}
	if err := d.ProcessTick(ctx, candleAt("NIFTY", ts.Add(20*time.Minute), 98, 98.5, 88, 96, 80)); err != nil {
		t.Fatalf("second hammer: %v", err)
	}
	if book.Len() != 1 {
		t.Fatalf("open orders = %d, want exactly 1", book.Len())
	}
}
