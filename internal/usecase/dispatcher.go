package usecase

import (
	"context"
	"time"

	"PatternTrade/internal/domain/models"
	"PatternTrade/internal/domain/repository"
	"PatternTrade/pkg/logger"
	"PatternTrade/pkg/util"
)

// PatternDetector is one pattern algorithm: it classifies a candle
// against the market snapshot and may derive a trade signal.
type PatternDetector interface {
	Algo() models.AlgoType
	Evaluate(c *models.Candle, snap *models.MarketSnapshot, now time.Time) (*models.TradeSignal, *models.PatternCandle)
}

// Dispatcher is the per-tick orchestration: market state update, then
// pattern detection and order dispatch per algorithm, then execution
// and closure advancement for open orders on the symbol. It holds no
// domain state of its own; ordering within a tick is its contract.
type Dispatcher struct {
	tracker   *MarketStateTracker
	detectors []PatternDetector
	orders    *OrderManager
	risk      *RiskManager

	candles  repository.CandleStore
	patterns repository.PatternStore
	signals  repository.SignalStore

	l       *logger.Logger
	metrics repository.Metrics

	now func() time.Time
}

func NewDispatcher(
	tracker *MarketStateTracker,
	detectors []PatternDetector,
	orders *OrderManager,
	risk *RiskManager,
	candles repository.CandleStore,
	patterns repository.PatternStore,
	signals repository.SignalStore,
	l *logger.Logger,
	m repository.Metrics,
) *Dispatcher {
	return &Dispatcher{
		tracker:   tracker,
		detectors: detectors,
		orders:    orders,
		risk:      risk,
		candles:   candles,
		patterns:  patterns,
		signals:   signals,
		l:         l,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ProcessTick routes one candle through the pipeline. Within the tick
// the ordering is fixed: state update precedes detection, detection
// precedes dispatch, dispatch precedes advancement. Errors from any
// stage are logged and the tick continues; only the caller decides
// whether the stream survives.
func (d *Dispatcher) ProcessTick(ctx context.Context, c *models.Candle) error {
	started := d.now()
	tradeDate := util.TradingDay(c.Timestamp)

	d.metrics.RecordCandle(c.Symbol, string(c.Timeframe))
	if err := d.candles.Put(ctx, c); err != nil {
		d.l.Warn("candle persist failed", logger.String("symbol", c.Symbol), logger.Error(err))
	}

	if err := d.risk.EnsureDay(ctx, tradeDate, c.Symbol); err != nil {
		d.l.Error("risk day seeding failed",
			logger.String("symbol", c.Symbol),
			logger.String("trade_date", tradeDate),
			logger.Error(err))
	}

	snap, err := d.tracker.Update(ctx, c)
	if err != nil {
		return err
	}

	for _, det := range d.detectors {
		sig, pc := det.Evaluate(c, snap, d.now())
		if pc != nil {
			if err := d.patterns.Put(ctx, pc); err != nil {
				d.l.Warn("pattern persist failed", logger.String("symbol", c.Symbol), logger.Error(err))
			}
			d.l.Info("pattern matched",
				logger.String("symbol", c.Symbol),
				logger.String("algo", string(det.Algo())),
				logger.Time("candle_ts", c.Timestamp))
		}
		if sig == nil {
			continue
		}

		d.metrics.RecordSignal(c.Symbol, string(sig.Algo))
		if err := d.signals.Put(ctx, sig); err != nil {
			d.l.Warn("signal persist failed", logger.String("signal_id", sig.ID), logger.Error(err))
		}
		if err := d.orders.Dispatch(ctx, sig, tradeDate); err != nil {
			d.l.Error("signal dispatch failed",
				logger.String("signal_id", sig.ID),
				logger.Error(err))
		}
	}

	d.orders.AdvanceExecution(ctx, c)
	d.orders.AdvanceClosure(ctx, c)

	d.metrics.RecordTickLatency(string(c.Timeframe), d.now().Sub(started).Seconds())
	return nil
}

// Run consumes a candle stream until it ends or the context is
// cancelled. Malformed candles are skipped; a tick error is logged and
// the stream continues. Only transport loss ends the loop.
func (d *Dispatcher) Run(ctx context.Context, stream repository.CandleStream) error {
	if err := stream.Connect(ctx); err != nil {
		return err
	}
	defer stream.Close()

	candles, errs := stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			return err
		case c, ok := <-candles:
			if !ok {
				return nil
			}
			if c == nil || c.Symbol == "" || c.Timestamp.IsZero() {
				d.l.Warn("skipping malformed candle")
				continue
			}
			if err := d.ProcessTick(ctx, c); err != nil {
				d.l.Error("tick failed",
					logger.String("symbol", c.Symbol),
					logger.Time("candle_ts", c.Timestamp),
					logger.Error(err))
			}
		}
	}
}
