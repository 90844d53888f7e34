package usecase

import (
	"context"
	"time"

	"PatternTrade/internal/domain/models"
	"PatternTrade/internal/domain/repository"
)

// QueryService is the read-only projection surface the API serves
// from. Every query goes through the stores; nothing here mutates.
type QueryService struct {
	candles   repository.CandleStore
	snapshots repository.SnapshotStore
	risk      repository.RiskStore
	orders    repository.OrderStore
	signals   repository.SignalStore
	patterns  repository.PatternStore
}

func NewQueryService(
	candles repository.CandleStore,
	snapshots repository.SnapshotStore,
	risk repository.RiskStore,
	orders repository.OrderStore,
	signals repository.SignalStore,
	patterns repository.PatternStore,
) *QueryService {
	return &QueryService{
		candles:   candles,
		snapshots: snapshots,
		risk:      risk,
		orders:    orders,
		signals:   signals,
		patterns:  patterns,
	}
}

func (q *QueryService) Candles(ctx context.Context, symbol string, tf models.Timeframe, from, to time.Time) ([]models.Candle, error) {
	return q.candles.Range(ctx, symbol, tf, from, to)
}

func (q *QueryService) MarketState(ctx context.Context, tradeDate, symbol string, tf models.Timeframe) (*models.MarketSnapshot, error) {
	return q.snapshots.Get(ctx, models.MarketStateKey(tradeDate, symbol, tf))
}

func (q *QueryService) MarketStates(ctx context.Context, symbol string, tf models.Timeframe, from, to time.Time) ([]*models.MarketSnapshot, error) {
	return q.snapshots.Query(ctx, symbol, tf, from, to)
}

func (q *QueryService) RiskState(ctx context.Context, tradeDate, symbol, configID string) (*models.RiskState, error) {
	return q.risk.Get(ctx, models.RiskStateKey(tradeDate, symbol, configID))
}

func (q *QueryService) RiskStates(ctx context.Context, tradeDate, configID string) ([]*models.RiskState, error) {
	return q.risk.Query(ctx, tradeDate, configID)
}

func (q *QueryService) Orders(ctx context.Context, f repository.OrderFilter) ([]*models.Order, error) {
	return q.orders.Query(ctx, f)
}

func (q *QueryService) Signals(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.TradeSignal, error) {
	return q.signals.Query(ctx, symbol, from, to, limit)
}

func (q *QueryService) Patterns(ctx context.Context, symbol string, algo models.AlgoType, from, to time.Time, limit int) ([]*models.PatternCandle, error) {
	return q.patterns.Query(ctx, symbol, algo, from, to, limit)
}
