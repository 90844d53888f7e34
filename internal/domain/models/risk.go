package models

import "time"

// Risk-gate rejection reasons. The reason is persisted on the
// RiskState the moment eligibility flips and returned verbatim to
// later admission attempts.
const (
	ReasonMaxTradeCapital = "max trade capital limit reached"
	ReasonMaxSLHits       = "max stop loss hit count reached"
	ReasonMaxTargetHits   = "max target hit count reached"
	ReasonMaxRiskCapacity = "max risk capacity breached"
	ReasonMaxTradeCount   = "max trade count reached"
	ReasonNoRiskState     = "no risk state for key"
)

// RiskConfiguration is the user-defined budget a trading day's
// RiskState is seeded from.
type RiskConfiguration struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	CreatedAt      time.Time `json:"created_at"`
	StartTradeDate string    `json:"start_trade_date"`
	EndTradeDate   string    `json:"end_trade_date"`

	Symbols []string   `json:"symbols"`
	Algos   []AlgoType `json:"trading_algo_types"`

	MaxTradeCount     int     `json:"max_trade_count"`
	MaxSLHitCount     int     `json:"max_sl_hit_count"`
	MaxTargetHitCount int     `json:"max_target_hit_count"`
	TargetPnL         float64 `json:"targeted_pnl"`

	// MaxRiskCapacity is the stop-loss capacity: the largest cumulative
	// loss tolerated, expressed as a positive number of currency units.
	MaxRiskCapacity float64 `json:"max_risk_capacity"`
	MaxTradeCapital float64 `json:"max_trade_capital"`

	Timeframe Timeframe `json:"time_frame"`
}

// AppliesTo reports whether the configuration covers the given symbol.
func (c *RiskConfiguration) AppliesTo(symbol string) bool {
	for _, s := range c.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// Allows reports whether the configuration trades the given algorithm.
func (c *RiskConfiguration) Allows(algo AlgoType) bool {
	for _, a := range c.Algos {
		if a == algo {
			return true
		}
	}
	return false
}

// RiskState is the per (date, symbol, configuration) budget and
// eligibility tracker. Eligible -> ineligible is one-way for the key;
// the next trading day seeds a fresh state.
type RiskState struct {
	CacheKey  string `json:"cache_key"`
	TradeDate string `json:"trade_date"`
	Symbol    string `json:"symbol"`
	ConfigID  string `json:"config_id"`
	UserID    string `json:"user_id"`

	CurrentPnL            float64 `json:"current_pnl"`
	CurrentSLHitCount     int     `json:"current_sl_hit_count"`
	MaxSLHitCount         int     `json:"max_sl_hit_count"`
	CurrentTargetHitCount int     `json:"current_target_hit_count"`
	MaxTargetHitCount     int     `json:"max_target_hit_count"`
	CurrentTradeCount     int     `json:"current_trade_count"`
	MaxTradeCount         int     `json:"max_trade_count"`

	TargetPnL       float64 `json:"targeted_pnl"`
	MaxRiskCapacity float64 `json:"max_risk_capacity"`

	CurrentUsedTradeCapital float64 `json:"current_used_trade_capital"`
	MaxTradeCapital         float64 `json:"max_trade_capital"`

	Eligible          bool   `json:"eligible"`
	NotEligibleReason string `json:"not_eligible_reason"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SeedRiskState creates a fresh day state from a configuration.
func SeedRiskState(cfg *RiskConfiguration, tradeDate, symbol string, now time.Time) *RiskState {
	return &RiskState{
		CacheKey:          RiskStateKey(tradeDate, symbol, cfg.ID),
		TradeDate:         tradeDate,
		Symbol:            symbol,
		ConfigID:          cfg.ID,
		UserID:            cfg.UserID,
		MaxSLHitCount:     cfg.MaxSLHitCount,
		MaxTargetHitCount: cfg.MaxTargetHitCount,
		MaxTradeCount:     cfg.MaxTradeCount,
		TargetPnL:         cfg.TargetPnL,
		MaxRiskCapacity:   cfg.MaxRiskCapacity,
		MaxTradeCapital:   cfg.MaxTradeCapital,
		Eligible:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
