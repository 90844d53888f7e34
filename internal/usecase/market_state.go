package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"PatternTrade/internal/domain/models"
	"PatternTrade/internal/domain/repository"
	"PatternTrade/pkg/config"
	"PatternTrade/pkg/logger"
	"PatternTrade/pkg/util"
)

// MarketStateTracker folds every incoming candle into the per
// (date, symbol, timeframe) MarketSnapshot: OHLCV aggregates, SMA
// trend, green/red streaks, and pivot-derived support/resistance.
// Every update is written through the two-tier store.
type MarketStateTracker struct {
	snapshots    repository.SnapshotStore
	l            *logger.Logger
	smaWindow    int
	pivotDepth   int
	pivotWorkers int
}

func NewMarketStateTracker(snapshots repository.SnapshotStore, l *logger.Logger, cfg config.EngineConfig) *MarketStateTracker {
	return &MarketStateTracker{
		snapshots:    snapshots,
		l:            l,
		smaWindow:    cfg.SMAWindow,
		pivotDepth:   cfg.PivotDepth,
		pivotWorkers: cfg.PivotWorkers,
	}
}

// Update folds one candle into its key's snapshot and persists the
// result. The first candle of a key seeds the snapshot from itself.
func (t *MarketStateTracker) Update(ctx context.Context, c *models.Candle) (*models.MarketSnapshot, error) {
	tradeDate := util.TradingDay(c.Timestamp)
	key := models.MarketStateKey(tradeDate, c.Symbol, c.Timeframe)

	snap, err := t.snapshots.Get(ctx, key)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		snap = t.seed(key, tradeDate, c)
		t.l.Debug("seeded market snapshot",
			logger.String("key", key),
			logger.String("symbol", c.Symbol),
			logger.String("timeframe", string(c.Timeframe)))
	case err != nil:
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	default:
		t.fold(snap, c)
	}

	snap.Candles = append(snap.Candles, *c)
	snap.CurrentSMA = sma(snap.Candles, t.smaWindow)
	snap.PreviousTrend = snap.CurrentTrend
	snap.CurrentTrend = classifyTrend(c.Close, snap.CurrentSMA, len(snap.Candles), t.smaWindow)
	snap.Support, snap.Resistance = t.scanPivots(snap.Candles)
	snap.UpdatedAt = time.Now().UTC()

	if err := t.snapshots.Put(ctx, snap); err != nil {
		return nil, fmt.Errorf("persist snapshot %s: %w", key, err)
	}
	return snap, nil
}

func (t *MarketStateTracker) seed(key, tradeDate string, c *models.Candle) *models.MarketSnapshot {
	now := time.Now().UTC()
	snap := &models.MarketSnapshot{
		CacheKey:  key,
		TradeDate: tradeDate,
		Symbol:    c.Symbol,
		Timeframe: c.Timeframe,

		CurrentOpen:   c.Open,
		CurrentHigh:   c.High,
		CurrentLow:    c.Low,
		CurrentClose:  c.Close,
		CurrentVolume: c.Volume,

		CreatedAt: now,
		UpdatedAt: now,
	}
	bumpStreaks(snap, c)
	return snap
}

// fold applies one candle's aggregates. High and low widen to the most
// extreme values seen; close keeps the worst (lowest) close of the day,
// a deliberate conservative rule the downstream detectors rely on.
func (t *MarketStateTracker) fold(snap *models.MarketSnapshot, c *models.Candle) {
	snap.PreviousOpen = snap.CurrentOpen
	snap.PreviousHigh = snap.CurrentHigh
	snap.PreviousLow = snap.CurrentLow
	snap.PreviousClose = snap.CurrentClose
	snap.PreviousVolume = snap.CurrentVolume

	if c.High > snap.CurrentHigh {
		snap.CurrentHigh = c.High
	}
	if c.Low < snap.CurrentLow {
		snap.CurrentLow = c.Low
	}
	if c.Close < snap.CurrentClose {
		snap.CurrentClose = c.Close
	}
	snap.CurrentVolume += c.Volume

	bumpStreaks(snap, c)
}

func bumpStreaks(snap *models.MarketSnapshot, c *models.Candle) {
	switch {
	case c.IsGreen():
		snap.GreenStreak++
		snap.RedStreak = 0
	case c.IsRed():
		snap.RedStreak++
		snap.GreenStreak = 0
	default:
		// doji: both streaks reset
		snap.GreenStreak = 0
		snap.RedStreak = 0
	}
}

func sma(candles []models.Candle, window int) float64 {
	n := len(candles)
	if n == 0 {
		return 0
	}
	if window > n {
		window = n
	}
	var sum float64
	for _, c := range candles[n-window:] {
		sum += c.Close
	}
	return sum / float64(window)
}

func classifyTrend(close, sma float64, history, window int) models.MarketTrend {
	if history <= window {
		return models.TrendSideways
	}
	switch {
	case close > sma:
		return models.TrendBullish
	case close < sma:
		return models.TrendBearish
	default:
		return models.TrendSideways
	}
}

// scanPivots finds local minima (support, by low) and maxima
// (resistance, by high) over the day's history. Each candidate index
// only reads the immutable slice, so candidates are checked by a
// bounded worker pool.
func (t *MarketStateTracker) scanPivots(candles []models.Candle) (support, resistance []float64) {
	n := len(candles)
	depth := t.pivotDepth
	if n < 2*depth+1 {
		return nil, nil
	}

	isSupport := make([]bool, n)
	isResistance := make([]bool, n)

	workers := t.pivotWorkers
	if workers < 1 {
		workers = 1
	}
	var wg sync.WaitGroup
	idx := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				isSupport[i] = localMin(candles, i, depth)
				isResistance[i] = localMax(candles, i, depth)
			}
		}()
	}
	for i := depth; i < n-depth; i++ {
		idx <- i
	}
	close(idx)
	wg.Wait()

	for i := depth; i < n-depth; i++ {
		if isSupport[i] {
			support = append(support, candles[i].Low)
		}
		if isResistance[i] {
			resistance = append(resistance, candles[i].High)
		}
	}
	return support, resistance
}

func localMin(candles []models.Candle, i, depth int) bool {
	for j := i - depth; j <= i+depth; j++ {
		if candles[j].Low < candles[i].Low {
			return false
		}
	}
	return true
}

func localMax(candles []models.Candle, i, depth int) bool {
	for j := i - depth; j <= i+depth; j++ {
		if candles[j].High > candles[i].High {
			return false
		}
	}
	return true
}
