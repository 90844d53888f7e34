package usecase

import (
	"testing"
	"time"

	"PatternTrade/internal/domain/models"
	"PatternTrade/pkg/config"
)

func testHammerConfig() config.HammerConfig {
	return config.HammerConfig{
		SupportTolerance:   0.002,
		RedStreakThreshold: 3,
		DropThreshold:      20,
		DropWindow:         10,
		SLMarginPoints:     1,
		TargetMultiplier:   1.5,
		Quantity:           10,
	}
}

// hammerCandle is a textbook hammer: small body near the top of the
// range with a long lower wick. body=2, lower=8, upper=0.5,
// body/range=0.19.
func hammerCandle(ts time.Time) *models.Candle {
	return &models.Candle{
		Symbol:    "NIFTY",
		Timestamp: ts,
		Open:      100,
		High:      100.5,
		Low:       90,
		Close:     98,
		Volume:    100,
		Timeframe: models.TF5m,
	}
}

func snapshotWith(c *models.Candle, redStreak int) *models.MarketSnapshot {
	return &models.MarketSnapshot{
		Symbol:    c.Symbol,
		Timeframe: c.Timeframe,
		RedStreak: redStreak,
		Candles:   []models.Candle{*c},
	}
}

func TestHammerNoSignalWithoutContext(t *testing.T) {
	d := NewHammerDetector(testHammerConfig())
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

	// Long lower wick but no support, drop, or streak context.
	c := &models.Candle{
		Symbol: "NIFTY", Timestamp: ts, Timeframe: models.TF5m,
		Open: 100, High: 102, Low: 80, Close: 90, Volume: 100,
	}
	sig, _ := d.Evaluate(c, snapshotWith(c, 0), ts.Add(5*time.Minute))
	if sig != nil {
		t.Fatalf("expected no signal without a context condition, got %+v", sig)
	}
}

func TestHammerSignalOnRedStreak(t *testing.T) {
	d := NewHammerDetector(testHammerConfig())
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	c := hammerCandle(ts)

	sig, pc := d.Evaluate(c, snapshotWith(c, 3), ts.Add(5*time.Minute))
	if sig == nil {
		t.Fatalf("expected a signal with red streak at threshold")
	}
	if pc == nil || !pc.IsPatternMatch {
		t.Fatalf("expected a pattern candle on match")
	}
	if sig.Direction != models.Long {
		t.Fatalf("hammer signals must be Long, got %s", sig.Direction)
	}

	// Red candle: entry from open, minus margin.
	wantEntry := c.Open - 1
	if sig.EntryPrice != wantEntry {
		t.Fatalf("entry = %v, want %v", sig.EntryPrice, wantEntry)
	}
	wantStop := wantEntry - (c.LowerWick() + 1)
	if sig.StopLoss != wantStop {
		t.Fatalf("stop = %v, want %v", sig.StopLoss, wantStop)
	}
	wantTarget := wantEntry + c.LowerWick()*1.5
	if sig.Target != wantTarget {
		t.Fatalf("target = %v, want %v", sig.Target, wantTarget)
	}
	if sig.Quantity != 10 || sig.Notional != wantEntry*10 {
		t.Fatalf("qty/notional = %d/%v, want 10/%v", sig.Quantity, sig.Notional, wantEntry*10)
	}
}

func TestHammerSignalNearSupport(t *testing.T) {
	d := NewHammerDetector(testHammerConfig())
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	c := hammerCandle(ts)

	snap := snapshotWith(c, 0)
	snap.Support = []float64{90.1} // low 90 sits just below within tolerance
	sig, _ := d.Evaluate(c, snap, ts.Add(5*time.Minute))
	if sig == nil {
		t.Fatalf("expected a signal when the low probes a support level")
	}

	snap.Support = []float64{95} // far above: 5 points is outside 0.2% tolerance
	d2 := NewHammerDetector(testHammerConfig())
	sig, _ = d2.Evaluate(c, snap, ts.Add(5*time.Minute))
	if sig != nil {
		t.Fatalf("expected no signal when support is outside tolerance")
	}
}

func TestHammerPromotionOnPointDrop(t *testing.T) {
	d := NewHammerDetector(testHammerConfig())
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)

	// Not a standalone hammer (lower/body = 1.25 < 1.75) but the lower
	// wick dominates and the upper wick is negligible.
	c := &models.Candle{
		Symbol: "NIFTY", Timestamp: ts, Timeframe: models.TF5m,
		Open: 100, High: 100.2, Low: 82, Close: 92, Volume: 100,
	}

	// History: opens peaked at 125, the close before this candle was
	// 100 -> 25 point drop inside the window.
	history := []models.Candle{
		{Open: 125, High: 126, Low: 118, Close: 119},
		{Open: 119, High: 120, Low: 108, Close: 109},
		{Open: 109, High: 110, Low: 99, Close: 100},
		*c,
	}
	snap := &models.MarketSnapshot{Symbol: c.Symbol, Timeframe: c.Timeframe, Candles: history}

	sig, _ := d.Evaluate(c, snap, ts.Add(5*time.Minute))
	if sig == nil {
		t.Fatalf("expected promotion to standalone hammer after a sharp drop")
	}

	// Without the drop the same candle yields nothing.
	d2 := NewHammerDetector(testHammerConfig())
	sig, _ = d2.Evaluate(c, snapshotWith(c, 0), ts.Add(5*time.Minute))
	if sig != nil {
		t.Fatalf("expected no signal without the drop context")
	}
}

func TestHammerSuppressesStaleEvaluation(t *testing.T) {
	d := NewHammerDetector(testHammerConfig())
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	c := hammerCandle(ts)

	// Evaluation clock not past the candle timestamp: pattern recorded,
	// no signal.
	sig, pc := d.Evaluate(c, snapshotWith(c, 3), ts)
	if sig != nil {
		t.Fatalf("expected no signal when clock is not past the candle")
	}
	if pc == nil {
		t.Fatalf("pattern candle must still be recorded")
	}
	if got := len(d.Ledger()); got != 1 {
		t.Fatalf("ledger length = %d, want 1", got)
	}
}

func TestHammerDeterministic(t *testing.T) {
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	c := hammerCandle(ts)
	now := ts.Add(5 * time.Minute)

	a, _ := NewHammerDetector(testHammerConfig()).Evaluate(c, snapshotWith(c, 3), now)
	b, _ := NewHammerDetector(testHammerConfig()).Evaluate(c, snapshotWith(c, 3), now)
	if a == nil || b == nil {
		t.Fatalf("expected signals from both evaluations")
	}
	if a.EntryPrice != b.EntryPrice || a.StopLoss != b.StopLoss || a.Target != b.Target {
		t.Fatalf("identical inputs produced different signals: %+v vs %+v", a, b)
	}
}

func TestHammerNilSnapshotDegrades(t *testing.T) {
	d := NewHammerDetector(testHammerConfig())
	ts := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	sig, pc := d.Evaluate(hammerCandle(ts), nil, ts.Add(time.Minute))
	if sig != nil || pc != nil {
		t.Fatalf("missing snapshot must degrade to no signal")
	}
}
