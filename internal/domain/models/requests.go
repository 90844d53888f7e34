package models

// Query-surface request shapes. Bound from query strings by the HTTP
// layer and validated before any store is touched.

type CandlesRequest struct {
	Symbol    string `query:"symbol" validate:"required"`
	Timeframe string `query:"timeframe"`
	From      string `query:"from"`
	To        string `query:"to"`
}

type MarketStateRequest struct {
	Symbol    string `query:"symbol" validate:"required"`
	Timeframe string `query:"timeframe"`
	TradeDate string `query:"trade_date" validate:"required"`
}

type OrdersRequest struct {
	Symbol string `query:"symbol"`
	UserID string `query:"user_id"`
	Algo   string `query:"algo"`
	Phase  string `query:"phase" validate:"omitempty,oneof=Placed Executed Closed"`
	From   string `query:"from"`
	To     string `query:"to"`
	Limit  int    `query:"limit" default:"100" validate:"min=0,max=1000"`
}

type SignalsRequest struct {
	Symbol string `query:"symbol"`
	From   string `query:"from"`
	To     string `query:"to"`
	Limit  int    `query:"limit" default:"100" validate:"min=0,max=1000"`
}

type PatternsRequest struct {
	Symbol string `query:"symbol"`
	Algo   string `query:"algo"`
	From   string `query:"from"`
	To     string `query:"to"`
	Limit  int    `query:"limit" default:"100" validate:"min=0,max=1000"`
}

type RiskStatesRequest struct {
	TradeDate string `query:"trade_date" validate:"required"`
	ConfigID  string `query:"config_id" validate:"required"`
}

type SaveRiskConfigurationRequest struct {
	ID     string `json:"id"`
	UserID string `json:"user_id" validate:"required"`

	StartTradeDate string `json:"start_trade_date" validate:"required"`
	EndTradeDate   string `json:"end_trade_date" validate:"required"`

	Symbols []string `json:"symbols" validate:"required,min=1"`
	Algos   []string `json:"trading_algo_types" validate:"required,min=1"`

	MaxTradeCount     int     `json:"max_trade_count" validate:"min=1"`
	MaxSLHitCount     int     `json:"max_sl_hit_count" validate:"min=1"`
	MaxTargetHitCount int     `json:"max_target_hit_count" validate:"min=1"`
	TargetPnL         float64 `json:"targeted_pnl"`
	MaxRiskCapacity   float64 `json:"max_risk_capacity" validate:"min=0"`
	MaxTradeCapital   float64 `json:"max_trade_capital" validate:"gt=0"`

	Timeframe string `json:"time_frame"`
}
