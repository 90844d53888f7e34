package usecase

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"PatternTrade/internal/domain/models"
	"PatternTrade/pkg/config"
)

// ShootingStarDetector is the hammer's mirror: a dominant upper wick
// after a run-up signals a short reversal. It shares the hammer's
// threshold configuration with the wick roles swapped.
type ShootingStarDetector struct {
	cfg config.HammerConfig

	mu     sync.Mutex
	ledger []models.PatternCandle
}

func NewShootingStarDetector(cfg config.HammerConfig) *ShootingStarDetector {
	return &ShootingStarDetector{cfg: cfg}
}

func (d *ShootingStarDetector) Algo() models.AlgoType { return models.ShootingStarPatternAlgo }

func (d *ShootingStarDetector) Evaluate(c *models.Candle, snap *models.MarketSnapshot, now time.Time) (*models.TradeSignal, *models.PatternCandle) {
	if snap == nil || c.Range() <= 0 {
		return nil, nil
	}

	if !d.isStandaloneStar(c) {
		return nil, nil
	}
	if !d.nearResistance(c, snap) && snap.GreenStreak < d.cfg.RedStreakThreshold {
		return nil, nil
	}

	pc := models.PatternCandle{
		Candle:           *c,
		Algo:             models.ShootingStarPatternAlgo,
		IsGreen:          c.IsGreen(),
		IsPatternMatch:   true,
		BodyToRangeRatio: c.Body() / c.Range(),
		IdentifiedAt:     now,
	}
	d.mu.Lock()
	d.ledger = append(d.ledger, pc)
	d.mu.Unlock()

	if !now.After(c.Timestamp) {
		return nil, &pc
	}
	return d.buildSignal(c, now), &pc
}

func (d *ShootingStarDetector) isStandaloneStar(c *models.Candle) bool {
	body := c.Body()
	lower := c.LowerWick()
	upper := c.UpperWick()

	if body/c.Range() <= 0.25 {
		return upper > 2.1*lower
	}
	if body == 0 {
		return false
	}
	return upper/body >= 1.75 && lower/body <= 1.5 && upper > 2.0*lower
}

func (d *ShootingStarDetector) nearResistance(c *models.Candle, snap *models.MarketSnapshot) bool {
	for _, r := range snap.Resistance {
		if r <= 0 {
			continue
		}
		if c.High >= r && (c.High-r) <= r*d.cfg.SupportTolerance {
			return true
		}
	}
	return false
}

func (d *ShootingStarDetector) buildSignal(c *models.Candle, now time.Time) *models.TradeSignal {
	margin := d.cfg.SLMarginPoints

	entry := c.Open
	if c.IsRed() {
		entry = c.Close
	}
	entry += margin

	stop := entry + (c.UpperWick() + margin)
	target := entry - c.UpperWick()*d.cfg.TargetMultiplier

	return &models.TradeSignal{
		ID:          uuid.NewString(),
		Candle:      *c,
		Direction:   models.Short,
		Algo:        models.ShootingStarPatternAlgo,
		RequestedAt: now,
		EntryPrice:  entry,
		StopLoss:    stop,
		Target:      target,
		Quantity:    d.cfg.Quantity,
		Notional:    entry * float64(d.cfg.Quantity),
	}
}

func (d *ShootingStarDetector) Ledger() []models.PatternCandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.PatternCandle, len(d.ledger))
	copy(out, d.ledger)
	return out
}
