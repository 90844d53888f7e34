package models

import "time"

// AlgoType names a pattern-detection algorithm.
type AlgoType string

const (
	HammerPatternAlgo       AlgoType = "HammerPatternAlgo"
	ShootingStarPatternAlgo AlgoType = "ShootingStarPatternAlgo"
)

// TradeDirection is the side of a trade.
type TradeDirection string

const (
	Long  TradeDirection = "Long"
	Short TradeDirection = "Short"
)

// PatternCandle is a candle that matched a pattern, plus the derived
// classification flags. Appended to the per-run pattern ledger and
// persisted for audit; never mutated after creation.
type PatternCandle struct {
	Candle           Candle    `json:"candle"`
	Algo             AlgoType  `json:"algo"`
	IsGreen          bool      `json:"is_green"`
	IsPatternMatch   bool      `json:"is_pattern_match"`
	BodyToRangeRatio float64   `json:"body_to_range_ratio"`
	IdentifiedAt     time.Time `json:"identified_at"`
}

// TradeSignal is the detector's output: an immutable trade intent
// consumed exactly once by the order lifecycle manager.
type TradeSignal struct {
	ID          string         `json:"id"`
	Candle      Candle         `json:"candle"`
	Direction   TradeDirection `json:"direction"`
	Algo        AlgoType       `json:"algo"`
	RequestedAt time.Time      `json:"requested_at"`
	EntryPrice  float64        `json:"entry_price"`
	StopLoss    float64        `json:"stop_loss"`
	Target      float64        `json:"target"`
	Quantity    int            `json:"quantity"`
	Notional    float64        `json:"notional"`
}
