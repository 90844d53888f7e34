package models

import (
	"fmt"
	"time"
)

// OrderPhase is the single source of truth for order state.
// is_trade_open / is_trade_executed are derived, never stored
// independently.
type OrderPhase string

const (
	OrderPlaced   OrderPhase = "Placed"
	OrderExecuted OrderPhase = "Executed"
	OrderClosed   OrderPhase = "Closed"
)

// Order models trade intent through its lifecycle
// Placed -> Executed -> Closed. A Closed order is never reopened.
type Order struct {
	ID        int64          `json:"id"`
	DedupKey  string         `json:"dedup_key"`
	UserID    string         `json:"user_id"`
	ConfigID  string         `json:"config_id"`
	Symbol    string         `json:"symbol"`
	Direction TradeDirection `json:"direction"`
	Algo      AlgoType       `json:"algo"`

	EntryPrice float64 `json:"entry_price"`
	FillPrice  float64 `json:"fill_price"`
	ExitPrice  float64 `json:"exit_price"`
	StopLoss   float64 `json:"stop_loss"`
	Target     float64 `json:"target"`
	Quantity   int     `json:"quantity"`
	Notional   float64 `json:"notional"`

	Phase      OrderPhase `json:"phase"`
	PlacedAt   time.Time  `json:"placed_at"`
	ExecutedAt time.Time  `json:"executed_at"`
	ClosedAt   time.Time  `json:"closed_at"`

	ClosingProfit float64 `json:"closing_profit"`
	IsProfitable  bool    `json:"is_profitable_trade"`
}

// IsTradeOpen reports whether the order has not yet closed.
func (o *Order) IsTradeOpen() bool { return o.Phase != OrderClosed }

// IsTradeExecuted reports whether the order has been filled.
func (o *Order) IsTradeExecuted() bool { return o.Phase == OrderExecuted || o.Phase == OrderClosed }

// Execute transitions Placed -> Executed at the given fill price.
func (o *Order) Execute(fillPrice float64, at time.Time) error {
	if o.Phase != OrderPlaced {
		return fmt.Errorf("order %d: cannot execute from phase %s", o.ID, o.Phase)
	}
	o.Phase = OrderExecuted
	o.FillPrice = fillPrice
	o.EntryPrice = fillPrice
	o.ExecutedAt = at
	return nil
}

// Close transitions Executed -> Closed, computing realized profit.
func (o *Order) Close(exitPrice float64, at time.Time) error {
	if o.Phase != OrderExecuted {
		return fmt.Errorf("order %d: cannot close from phase %s", o.ID, o.Phase)
	}
	o.Phase = OrderClosed
	o.ExitPrice = exitPrice
	o.ClosedAt = at
	if o.Direction == Long {
		o.ClosingProfit = (o.ExitPrice - o.EntryPrice) * float64(o.Quantity)
	} else {
		o.ClosingProfit = (o.EntryPrice - o.ExitPrice) * float64(o.Quantity)
	}
	o.IsProfitable = o.ClosingProfit > 0
	return nil
}
