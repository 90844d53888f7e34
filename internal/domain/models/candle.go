package models

import (
	"math"
	"time"
)

// Timeframe identifies the bar interval of a candle stream.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF3m  Timeframe = "3m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1d  Timeframe = "1d"
)

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1m, TF3m, TF5m, TF15m, TF1d:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF5m }

// NormalizeTimeframe converts a raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// Candle is one OHLCV bar. Immutable once ingested.
type Candle struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Timeframe Timeframe `json:"timeframe"`
}

// IsGreen reports whether the candle closed above its open.
func (c Candle) IsGreen() bool { return c.Close > c.Open }

// IsRed reports whether the candle closed below its open.
func (c Candle) IsRed() bool { return c.Close < c.Open }

// Body returns the absolute open-to-close size.
func (c Candle) Body() float64 { return math.Abs(c.Open - c.Close) }

// Range returns the full high-to-low height.
func (c Candle) Range() float64 { return c.High - c.Low }

// LowerWick returns the distance from the body bottom to the low.
func (c Candle) LowerWick() float64 {
	if c.Open > c.Close {
		return c.Close - c.Low
	}
	return c.Open - c.Low
}

// UpperWick returns the distance from the body top to the high.
func (c Candle) UpperWick() float64 {
	if c.Open > c.Close {
		return c.High - c.Open
	}
	return c.High - c.Close
}
