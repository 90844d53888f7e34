package models

import "time"

// MarketTrend classifies the simple-moving-average trend.
type MarketTrend string

const (
	TrendBullish  MarketTrend = "Bullish"
	TrendBearish  MarketTrend = "Bearish"
	TrendSideways MarketTrend = "Sideways"
	TrendFlat     MarketTrend = "Flat"
)

// MarketSnapshot is the accumulated derived market state for one
// (date, symbol, timeframe) key. Created on the first candle of the
// day, mutated exactly once per incoming candle, implicitly expired at
// day rollover by the key changing.
type MarketSnapshot struct {
	CacheKey  string    `json:"cache_key"`
	TradeDate string    `json:"trade_date"`
	Symbol    string    `json:"symbol"`
	Timeframe Timeframe `json:"market_time_frame"`

	PreviousTrend MarketTrend `json:"previous_candle_market_trend"`
	CurrentTrend  MarketTrend `json:"current_candle_market_trend"`
	CurrentSMA    float64     `json:"current_sma"`

	PreviousOpen   float64 `json:"previous_candle_open"`
	PreviousHigh   float64 `json:"previous_candle_high"`
	PreviousLow    float64 `json:"previous_candle_low"`
	PreviousClose  float64 `json:"previous_candle_close"`
	PreviousVolume float64 `json:"previous_candle_volume"`

	CurrentOpen   float64 `json:"current_candle_open"`
	CurrentHigh   float64 `json:"current_candle_high"`
	CurrentLow    float64 `json:"current_candle_low"`
	CurrentClose  float64 `json:"current_candle_close"`
	CurrentVolume float64 `json:"current_candle_volume"`

	GreenStreak int `json:"last_consecutive_green_candle_count"`
	RedStreak   int `json:"last_consecutive_red_candle_count"`

	Candles    []Candle  `json:"candles"`
	Support    []float64 `json:"support"`
	Resistance []float64 `json:"resistance"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
