package usecase

import (
	"context"
	"fmt"
	"sync"

	"PatternTrade/internal/domain/models"
	"PatternTrade/internal/domain/repository"
	"PatternTrade/pkg/logger"
	"PatternTrade/pkg/util"
)

// OrderBook is the shared open-order ledger for one ingestion run.
// Every stream task observes the same instance. The mutex guards the
// map and the reserved dedup set only; it is never held across a
// cache or store call.
type OrderBook struct {
	mu       sync.Mutex
	open     map[int64]*models.Order
	reserved map[string]struct{}
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		open:     make(map[int64]*models.Order),
		reserved: make(map[string]struct{}),
	}
}

// Reserve atomically claims a dedup key. It is the in-process half of
// the admission serialization; the cache existence check is the
// cross-process half.
func (b *OrderBook) Reserve(dedupKey string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.reserved[dedupKey]; taken {
		return false
	}
	b.reserved[dedupKey] = struct{}{}
	return true
}

// Release frees a dedup key after the order closed or placement failed.
func (b *OrderBook) Release(dedupKey string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.reserved, dedupKey)
}

func (b *OrderBook) Add(o *models.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open[o.ID] = o
}

func (b *OrderBook) Remove(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.open, id)
}

// OpenOrders returns the open orders for a symbol. The returned slice
// is a snapshot; the *Order values are shared and must only be mutated
// by the tick that owns the symbol's stream.
func (b *OrderBook) OpenOrders(symbol string) []*models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*models.Order, 0, len(b.open))
	for _, o := range b.open {
		if o.Symbol == symbol {
			out = append(out, o)
		}
	}
	return out
}

func (b *OrderBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.open)
}

// OrderEvents receives order lifecycle notifications. Implementations
// must not block: they run inside the tick.
type OrderEvents interface {
	OrderPlaced(ctx context.Context, o *models.Order)
	OrderExecuted(ctx context.Context, o *models.Order)
	OrderClosed(ctx context.Context, o *models.Order)
}

type noopEvents struct{}

func (noopEvents) OrderPlaced(context.Context, *models.Order)   {}
func (noopEvents) OrderExecuted(context.Context, *models.Order) {}
func (noopEvents) OrderClosed(context.Context, *models.Order)   {}

// OrderManagerOption configures OrderManager.
type OrderManagerOption func(*OrderManager)

// WithOrderEvents attaches a lifecycle event sink.
func WithOrderEvents(ev OrderEvents) OrderManagerOption {
	return func(m *OrderManager) {
		if ev != nil {
			m.events = ev
		}
	}
}

// OrderManager drives the order lifecycle Placed -> Executed ->
// Closed: it turns admitted signals into orders, simulates fills, and
// closes on stop, target, or the end-of-day cutoff.
type OrderManager struct {
	book    *OrderBook
	orders  repository.OrderStore
	risk    *RiskManager
	l       *logger.Logger
	metrics repository.Metrics
	events  OrderEvents

	cutoffHour   int
	cutoffMinute int
}

func NewOrderManager(book *OrderBook, orders repository.OrderStore, risk *RiskManager, l *logger.Logger, m repository.Metrics, cutoffHour, cutoffMinute int, opts ...OrderManagerOption) *OrderManager {
	om := &OrderManager{
		book:         book,
		orders:       orders,
		risk:         risk,
		l:            l,
		metrics:      m,
		events:       noopEvents{},
		cutoffHour:   cutoffHour,
		cutoffMinute: cutoffMinute,
	}
	for _, opt := range opts {
		opt(om)
	}
	return om
}

// Dispatch fans a trade signal out to every eligible configuration.
// Per configuration: dedup (ledger reservation + cache existence),
// risk admission, then order creation and persistence. A failure for
// one configuration never blocks the others.
func (m *OrderManager) Dispatch(ctx context.Context, sig *models.TradeSignal, tradeDate string) error {
	configs, err := m.risk.EligibleConfigs(ctx, tradeDate, sig.Candle.Symbol, sig.Algo)
	if err != nil {
		return err
	}

	for _, cfg := range configs {
		if err := m.dispatchOne(ctx, sig, tradeDate, cfg); err != nil {
			m.l.Error("order dispatch failed",
				logger.String("symbol", sig.Candle.Symbol),
				logger.String("config_id", cfg.ID),
				logger.Error(err))
		}
	}
	return nil
}

func (m *OrderManager) dispatchOne(ctx context.Context, sig *models.TradeSignal, tradeDate string, cfg *models.RiskConfiguration) error {
	dedupKey := models.OrderDedupKey(sig.Candle.Symbol, sig.Algo, cfg.UserID)

	if !m.book.Reserve(dedupKey) {
		return nil
	}
	placed := false
	defer func() {
		if !placed {
			m.book.Release(dedupKey)
		}
	}()

	exists, err := m.orders.OpenExists(ctx, dedupKey)
	if err != nil {
		return fmt.Errorf("dedup check %s: %w", dedupKey, err)
	}
	if exists {
		return nil
	}

	riskKey := models.RiskStateKey(tradeDate, sig.Candle.Symbol, cfg.ID)
	ok, reason, err := m.risk.IsOrderTradeable(ctx, riskKey, sig.Notional)
	if err != nil {
		return err
	}
	if !ok {
		m.l.Debug("signal rejected by risk gate",
			logger.String("key", riskKey),
			logger.String("reason", reason))
		return nil
	}

	id, err := m.orders.NextID(ctx)
	if err != nil {
		return fmt.Errorf("allocate order id: %w", err)
	}

	o := &models.Order{
		ID:         id,
		DedupKey:   dedupKey,
		UserID:     cfg.UserID,
		ConfigID:   cfg.ID,
		Symbol:     sig.Candle.Symbol,
		Direction:  sig.Direction,
		Algo:       sig.Algo,
		EntryPrice: sig.EntryPrice,
		StopLoss:   sig.StopLoss,
		Target:     sig.Target,
		Quantity:   sig.Quantity,
		Notional:   sig.Notional,
		Phase:      models.OrderPlaced,
		PlacedAt:   sig.RequestedAt,
	}

	if err := m.orders.Put(ctx, o); err != nil {
		return fmt.Errorf("persist order %d: %w", o.ID, err)
	}
	if err := m.risk.ApplyPlacement(ctx, riskKey, o.Notional); err != nil {
		return err
	}
	// The dedup marker is a cache write. On failure the ledger
	// reservation still serializes admission and the placement stands.
	if err := m.orders.MarkOpen(ctx, dedupKey); err != nil {
		m.l.Warn("dedup marker write failed",
			logger.String("key", dedupKey),
			logger.Error(err))
	}

	m.book.Add(o)
	placed = true
	m.metrics.RecordOrderTransition(string(models.OrderPlaced))
	m.events.OrderPlaced(ctx, o)
	m.l.Info("order placed",
		logger.Int64("order_id", o.ID),
		logger.String("symbol", o.Symbol),
		logger.String("user_id", o.UserID),
		logger.Float64("entry", o.EntryPrice),
		logger.Float64("stop", o.StopLoss),
		logger.Float64("target", o.Target))
	return nil
}

// AdvanceExecution fills placed orders on the symbol whose entry
// condition the candle satisfies: a long fills once the open reaches
// the requested entry.
func (m *OrderManager) AdvanceExecution(ctx context.Context, c *models.Candle) {
	for _, o := range m.book.OpenOrders(c.Symbol) {
		if o.Phase != models.OrderPlaced {
			continue
		}
		if !entryTriggered(o, c) {
			continue
		}
		if err := o.Execute(c.Open, c.Timestamp); err != nil {
			m.l.Warn("skipping invalid execution", logger.Int64("order_id", o.ID), logger.Error(err))
			continue
		}
		if err := m.orders.Put(ctx, o); err != nil {
			m.l.Error("persist executed order failed", logger.Int64("order_id", o.ID), logger.Error(err))
		}
		m.metrics.RecordOrderTransition(string(models.OrderExecuted))
		m.events.OrderExecuted(ctx, o)
		m.l.Info("order executed",
			logger.Int64("order_id", o.ID),
			logger.String("symbol", o.Symbol),
			logger.Float64("fill", o.FillPrice))
	}
}

func entryTriggered(o *models.Order, c *models.Candle) bool {
	if o.Direction == models.Long {
		return c.Open >= o.EntryPrice
	}
	return c.Open <= o.EntryPrice
}

// AdvanceClosure closes executed orders whose stop or target the
// candle's close crossed, or any executed order still open at the
// end-of-day cutoff. Risk state is settled before the order leaves
// the ledger so freed capital is never visible early.
func (m *OrderManager) AdvanceClosure(ctx context.Context, c *models.Candle) {
	pastCutoff := util.AfterClock(c.Timestamp, m.cutoffHour, m.cutoffMinute)

	for _, o := range m.book.OpenOrders(c.Symbol) {
		if o.Phase != models.OrderExecuted {
			continue
		}
		if !pastCutoff && !exitTriggered(o, c) {
			continue
		}
		if err := o.Close(c.Close, c.Timestamp); err != nil {
			m.l.Warn("skipping invalid closure", logger.Int64("order_id", o.ID), logger.Error(err))
			continue
		}
		if err := m.risk.ApplyClosure(ctx, o); err != nil {
			m.l.Error("risk closure failed", logger.Int64("order_id", o.ID), logger.Error(err))
		}
		if err := m.orders.Put(ctx, o); err != nil {
			m.l.Error("persist closed order failed", logger.Int64("order_id", o.ID), logger.Error(err))
		}
		if err := m.orders.ClearOpen(ctx, o.DedupKey); err != nil {
			m.l.Warn("clear dedup key failed", logger.String("key", o.DedupKey), logger.Error(err))
		}
		m.book.Remove(o.ID)
		m.book.Release(o.DedupKey)
		m.metrics.RecordOrderTransition(string(models.OrderClosed))
		m.events.OrderClosed(ctx, o)
		m.l.Info("order closed",
			logger.Int64("order_id", o.ID),
			logger.String("symbol", o.Symbol),
			logger.Float64("exit", o.ExitPrice),
			logger.Float64("profit", o.ClosingProfit),
			logger.Bool("profitable", o.IsProfitable),
			logger.Bool("forced", pastCutoff && !exitTriggered(o, c)))
	}
}

func exitTriggered(o *models.Order, c *models.Candle) bool {
	if o.Direction == models.Long {
		return c.Close <= o.StopLoss || c.Close >= o.Target
	}
	return c.Close >= o.StopLoss || c.Close <= o.Target
}

