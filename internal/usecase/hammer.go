package usecase

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"PatternTrade/internal/domain/models"
	"PatternTrade/pkg/config"
)

// HammerDetector classifies a candle as a hammer reversal and, when
// the surrounding market context confirms it, derives a long trade
// signal. Detection is a pure function of (candle, snapshot, clock);
// the ledger of matched candles is the only state it accumulates.
type HammerDetector struct {
	cfg config.HammerConfig

	mu     sync.Mutex
	ledger []models.PatternCandle
}

func NewHammerDetector(cfg config.HammerConfig) *HammerDetector {
	return &HammerDetector{cfg: cfg}
}

func (d *HammerDetector) Algo() models.AlgoType { return models.HammerPatternAlgo }

// Evaluate classifies the candle. It returns the appended
// PatternCandle when the candle matches, and a TradeSignal when the
// match may be acted on (the clock must be strictly past the candle).
// A nil snapshot means no context is known yet and never matches.
func (d *HammerDetector) Evaluate(c *models.Candle, snap *models.MarketSnapshot, now time.Time) (*models.TradeSignal, *models.PatternCandle) {
	if snap == nil || c.Range() <= 0 {
		return nil, nil
	}

	standalone := d.isStandaloneHammer(c)

	dropped := d.pointDropInWindow(snap)
	if dropped && !standalone {
		// A sharp drop lowers the bar: a candle with a dominant lower
		// wick is promoted to a standalone hammer.
		body := c.Body()
		if body > 0 && c.LowerWick()/body >= 1.0 && c.UpperWick()/body < 0.3 {
			standalone = true
		}
	}
	if !standalone {
		return nil, nil
	}

	if !d.nearSupport(c, snap) && !dropped && snap.RedStreak < d.cfg.RedStreakThreshold {
		return nil, nil
	}

	pc := models.PatternCandle{
		Candle:           *c,
		Algo:             models.HammerPatternAlgo,
		IsGreen:          c.IsGreen(),
		IsPatternMatch:   true,
		BodyToRangeRatio: c.Body() / c.Range(),
		IdentifiedAt:     now,
	}
	d.mu.Lock()
	d.ledger = append(d.ledger, pc)
	d.mu.Unlock()

	// Never act on a candle whose bar is not finished relative to the
	// evaluation clock.
	if !now.After(c.Timestamp) {
		return nil, &pc
	}

	return d.buildSignal(c, now), &pc
}

func (d *HammerDetector) isStandaloneHammer(c *models.Candle) bool {
	body := c.Body()
	lower := c.LowerWick()
	upper := c.UpperWick()

	if c.Body()/c.Range() <= 0.25 {
		return lower > 2.1*upper
	}
	if body == 0 {
		return false
	}
	return lower/body >= 1.75 && upper/body <= 1.5 && lower > 2.0*upper
}

// nearSupport reports whether the candle's low sits at or below a
// known support level within the configured tolerance fraction.
func (d *HammerDetector) nearSupport(c *models.Candle, snap *models.MarketSnapshot) bool {
	for _, s := range snap.Support {
		if s <= 0 {
			continue
		}
		if c.Low <= s && (s-c.Low) <= s*d.cfg.SupportTolerance {
			return true
		}
	}
	return false
}

// pointDropInWindow reports whether the market fell by more than the
// configured number of points inside the trailing window: the highest
// open of the window minus the close immediately preceding the current
// candle.
func (d *HammerDetector) pointDropInWindow(snap *models.MarketSnapshot) bool {
	n := len(snap.Candles)
	if n < 2 {
		return false
	}
	start := n - 1 - d.cfg.DropWindow
	if start < 0 {
		start = 0
	}
	maxOpen := snap.Candles[start].Open
	for _, c := range snap.Candles[start : n-1] {
		if c.Open > maxOpen {
			maxOpen = c.Open
		}
	}
	prevClose := snap.Candles[n-2].Close
	return maxOpen-prevClose > d.cfg.DropThreshold
}

func (d *HammerDetector) buildSignal(c *models.Candle, now time.Time) *models.TradeSignal {
	margin := d.cfg.SLMarginPoints

	entry := c.Open
	if c.IsGreen() {
		entry = c.Close
	}
	entry -= margin

	stop := entry - (c.LowerWick() + margin)
	target := entry + c.LowerWick()*d.cfg.TargetMultiplier

	return &models.TradeSignal{
		ID:          uuid.NewString(),
		Candle:      *c,
		Direction:   models.Long,
		Algo:        models.HammerPatternAlgo,
		RequestedAt: now,
		EntryPrice:  entry,
		StopLoss:    stop,
		Target:      target,
		Quantity:    d.cfg.Quantity,
		Notional:    entry * float64(d.cfg.Quantity),
	}
}

// Ledger returns a copy of the pattern candles matched in this run.
func (d *HammerDetector) Ledger() []models.PatternCandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.PatternCandle, len(d.ledger))
	copy(out, d.ledger)
	return out
}
