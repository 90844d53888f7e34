package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PatternTrade/internal/domain/models"
	"PatternTrade/internal/domain/repository"
	icache "PatternTrade/internal/service/cache"
	"PatternTrade/pkg/logger"
	"PatternTrade/pkg/util"
)

// configTTL bounds how stale the in-process configuration list may
// get; the list is read on every tick and changes rarely.
const configTTL = 30 * time.Second

// RiskManager owns the per (date, symbol, configuration) budget
// states: it seeds them from active configurations, gates order
// admission, and folds order closures back into the budget. Once a
// state turns ineligible it stays ineligible for that key; the next
// trading day seeds a fresh one.
type RiskManager struct {
	risk    repository.RiskStore
	l       *logger.Logger
	metrics repository.Metrics
	configs *icache.TTLCache
}

func NewRiskManager(risk repository.RiskStore, l *logger.Logger, m repository.Metrics) *RiskManager {
	return &RiskManager{risk: risk, l: l, metrics: m, configs: icache.NewTTLCache()}
}

// configurations reads the active configuration list through a short
// in-process TTL cache so the durable store is not hit on every tick.
func (r *RiskManager) configurations(ctx context.Context, tradeDate string) ([]*models.RiskConfiguration, error) {
	if v, ok := r.configs.Get(tradeDate); ok {
		return v.([]*models.RiskConfiguration), nil
	}
	configs, err := r.risk.Configurations(ctx, tradeDate)
	if err != nil {
		return nil, err
	}
	r.configs.Set(tradeDate, configs, configTTL)
	return configs, nil
}

// EnsureDay seeds RiskStates and the per-configuration algorithm
// allow-list for every active configuration covering the symbol.
// Already-seeded keys are left untouched.
func (r *RiskManager) EnsureDay(ctx context.Context, tradeDate, symbol string) error {
	configs, err := r.configurations(ctx, tradeDate)
	if err != nil {
		return fmt.Errorf("load risk configurations: %w", err)
	}

	now := time.Now().UTC()
	for _, cfg := range configs {
		if !cfg.AppliesTo(symbol) {
			continue
		}

		key := models.RiskStateKey(tradeDate, symbol, cfg.ID)
		if _, err := r.risk.Get(ctx, key); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("load risk state %s: %w", key, err)
		}

		st := models.SeedRiskState(cfg, tradeDate, symbol, now)
		if err := r.risk.Put(ctx, st); err != nil {
			return fmt.Errorf("seed risk state %s: %w", key, err)
		}
		if err := r.risk.PutAlgoList(ctx, models.RiskAlgoKey(tradeDate, cfg.ID), cfg.Algos); err != nil {
			r.l.Warn("persist algo allow-list failed",
				logger.String("config_id", cfg.ID), logger.Error(err))
		}
		r.l.Info("seeded risk state",
			logger.String("key", key),
			logger.String("user_id", cfg.UserID),
			logger.Float64("max_trade_capital", cfg.MaxTradeCapital))
	}
	return nil
}

// EligibleConfigs returns the active configurations that cover the
// symbol and allow the algorithm. Dispatch fans out over these.
func (r *RiskManager) EligibleConfigs(ctx context.Context, tradeDate, symbol string, algo models.AlgoType) ([]*models.RiskConfiguration, error) {
	configs, err := r.configurations(ctx, tradeDate)
	if err != nil {
		return nil, fmt.Errorf("load risk configurations: %w", err)
	}
	out := make([]*models.RiskConfiguration, 0, len(configs))
	for _, cfg := range configs {
		if cfg.AppliesTo(symbol) && cfg.Allows(algo) {
			out = append(out, cfg)
		}
	}
	return out, nil
}

// IsOrderTradeable is the admission gate. It returns (true, "") when
// the order may be placed. A capital-ceiling breach is not just a
// rejection: it flips the state ineligible and persists the reason, so
// later attempts on the key fail fast with the stored reason.
func (r *RiskManager) IsOrderTradeable(ctx context.Context, riskKey string, notional float64) (bool, string, error) {
	st, err := r.risk.Get(ctx, riskKey)
	if errors.Is(err, repository.ErrNotFound) {
		r.metrics.RecordRiskRejection(models.ReasonNoRiskState)
		return false, models.ReasonNoRiskState, nil
	}
	if err != nil {
		return false, "", fmt.Errorf("load risk state %s: %w", riskKey, err)
	}

	if !st.Eligible {
		r.metrics.RecordRiskRejection(st.NotEligibleReason)
		return false, st.NotEligibleReason, nil
	}

	if st.CurrentUsedTradeCapital+notional > st.MaxTradeCapital {
		st.Eligible = false
		st.NotEligibleReason = models.ReasonMaxTradeCapital
		st.UpdatedAt = time.Now().UTC()
		if err := r.risk.Put(ctx, st); err != nil {
			return false, "", fmt.Errorf("persist ineligible risk state %s: %w", riskKey, err)
		}
		r.metrics.RecordRiskRejection(models.ReasonMaxTradeCapital)
		r.l.Warn("risk state exhausted",
			logger.String("key", riskKey),
			logger.String("reason", models.ReasonMaxTradeCapital),
			logger.Float64("used", st.CurrentUsedTradeCapital),
			logger.Float64("requested", notional))
		return false, models.ReasonMaxTradeCapital, nil
	}

	return true, "", nil
}

// ApplyPlacement debits capital and counts the trade after an order
// has been admitted and created.
func (r *RiskManager) ApplyPlacement(ctx context.Context, riskKey string, notional float64) error {
	st, err := r.risk.Get(ctx, riskKey)
	if err != nil {
		return fmt.Errorf("load risk state %s: %w", riskKey, err)
	}
	st.CurrentUsedTradeCapital += notional
	st.CurrentTradeCount++
	st.UpdatedAt = time.Now().UTC()
	if err := r.risk.Put(ctx, st); err != nil {
		return fmt.Errorf("persist risk state %s: %w", riskKey, err)
	}
	return nil
}

// ApplyClosure folds a closed order into its budget state and
// re-evaluates eligibility. The first matching exhaustion rule wins.
func (r *RiskManager) ApplyClosure(ctx context.Context, o *models.Order) error {
	riskKey := models.RiskStateKey(util.TradingDay(o.PlacedAt), o.Symbol, o.ConfigID)
	st, err := r.risk.Get(ctx, riskKey)
	if errors.Is(err, repository.ErrNotFound) {
		r.l.Warn("order closed without a risk state", logger.Int64("order_id", o.ID), logger.String("key", riskKey))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load risk state %s: %w", riskKey, err)
	}

	if o.IsProfitable {
		st.CurrentTargetHitCount++
	} else {
		st.CurrentSLHitCount++
	}
	st.CurrentPnL += o.ClosingProfit
	st.UpdatedAt = time.Now().UTC()

	if st.Eligible {
		if reason, exhausted := evaluateExhaustion(st); exhausted {
			st.Eligible = false
			st.NotEligibleReason = reason
			r.metrics.RecordRiskRejection(reason)
			r.l.Warn("risk state exhausted",
				logger.String("key", riskKey),
				logger.String("reason", reason),
				logger.Float64("pnl", st.CurrentPnL))
		}
	}

	if err := r.risk.Put(ctx, st); err != nil {
		return fmt.Errorf("persist risk state %s: %w", riskKey, err)
	}
	return nil
}

// evaluateExhaustion checks the budget limits in priority order.
func evaluateExhaustion(st *models.RiskState) (string, bool) {
	switch {
	case st.MaxSLHitCount > 0 && st.CurrentSLHitCount >= st.MaxSLHitCount:
		return models.ReasonMaxSLHits, true
	case st.MaxTargetHitCount > 0 && st.CurrentTargetHitCount >= st.MaxTargetHitCount:
		return models.ReasonMaxTargetHits, true
	case st.MaxRiskCapacity > 0 && st.CurrentPnL <= -st.MaxRiskCapacity:
		return models.ReasonMaxRiskCapacity, true
	case st.MaxTradeCount > 0 && st.CurrentTradeCount >= st.MaxTradeCount:
		return models.ReasonMaxTradeCount, true
	}
	return "", false
}
