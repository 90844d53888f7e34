package models

import "fmt"

// Cache keys are the logical identity of each persisted entity: the hot
// tier stores the JSON document under the key, the durable store
// upserts by the same key. Key shape never changes across restarts.

// MarketStateKey identifies one MarketSnapshot: CMS_<date>_<symbol>_<timeframe>.
func MarketStateKey(tradeDate, symbol string, tf Timeframe) string {
	return fmt.Sprintf("CMS_%s_%s_%s", tradeDate, symbol, tf)
}

// RiskStateKey identifies one per-symbol RiskState: CPnL_<date>_<symbol>_<configID>.
func RiskStateKey(tradeDate, symbol, configID string) string {
	return fmt.Sprintf("CPnL_%s_%s_%s", tradeDate, symbol, configID)
}

// RiskAlgoKey identifies the per-day algorithm allow-list for a
// configuration: CPnLAlgo_<date>_<configID>.
func RiskAlgoKey(tradeDate, configID string) string {
	return fmt.Sprintf("CPnLAlgo_%s_%s", tradeDate, configID)
}

// OrderDedupKey enforces at most one open order per
// (symbol, algorithm, user): ORDER_<symbol>_<algo>_<user>.
func OrderDedupKey(symbol string, algo AlgoType, userID string) string {
	return fmt.Sprintf("ORDER_%s_%s_%s", symbol, algo, userID)
}
