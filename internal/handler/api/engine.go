package api

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	models "PatternTrade/internal/domain/models"
	domrepo "PatternTrade/internal/domain/repository"
	"PatternTrade/internal/usecase"
	xhttp "PatternTrade/pkg/http"
	xlogger "PatternTrade/pkg/logger"
	"PatternTrade/pkg/util"
)

// EngineHandler serves the read-only projections over the decision
// pipeline's entities, plus risk-configuration management.
type EngineHandler struct {
	logger  *xlogger.Logger
	queries *usecase.QueryService
	risk    domrepo.RiskStore
}

func NewEngineHandler(logger *xlogger.Logger, queries *usecase.QueryService, risk domrepo.RiskStore) *EngineHandler {
	return &EngineHandler{logger: logger, queries: queries, risk: risk}
}

func (h *EngineHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/candles", h.Candles)
	g.GET("/market-state", h.MarketState)
	g.GET("/orders", h.Orders)
	g.GET("/signals", h.Signals)
	g.GET("/patterns", h.Patterns)
	g.GET("/risk/states", h.RiskStates)
	g.GET("/pnl", h.RiskStates)
	g.POST("/risk/configurations", h.SaveRiskConfiguration)
}

func (h *EngineHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	from := util.ParseTimeDefault(req.From, time.Time{})
	to := util.ParseTimeDefault(req.To, time.Time{})
	rows, err := h.queries.Candles(c.Request().Context(), req.Symbol, models.NormalizeTimeframe(req.Timeframe), from, to)
	if err != nil {
		h.logger.Error("candles query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *EngineHandler) MarketState(c echo.Context) error {
	req := &models.MarketStateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snap, err := h.queries.MarketState(c.Request().Context(), req.TradeDate, req.Symbol, models.NormalizeTimeframe(req.Timeframe))
	if errors.Is(err, domrepo.ErrNotFound) {
		return xhttp.NotFoundResponse(c, "no market state for key")
	}
	if err != nil {
		h.logger.Error("market state query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *EngineHandler) Orders(c echo.Context) error {
	req := &models.OrdersRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.queries.Orders(c.Request().Context(), domrepo.OrderFilter{
		Symbol: req.Symbol,
		UserID: req.UserID,
		Algo:   models.AlgoType(req.Algo),
		Phase:  models.OrderPhase(req.Phase),
		From:   util.ParseTimeDefault(req.From, time.Time{}),
		To:     util.ParseTimeDefault(req.To, time.Time{}),
		Limit:  req.Limit,
	})
	if err != nil {
		h.logger.Error("orders query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *EngineHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.queries.Signals(c.Request().Context(), req.Symbol,
		util.ParseTimeDefault(req.From, time.Time{}),
		util.ParseTimeDefault(req.To, time.Time{}),
		req.Limit)
	if err != nil {
		h.logger.Error("signals query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *EngineHandler) Patterns(c echo.Context) error {
	req := &models.PatternsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.queries.Patterns(c.Request().Context(), req.Symbol, models.AlgoType(req.Algo),
		util.ParseTimeDefault(req.From, time.Time{}),
		util.ParseTimeDefault(req.To, time.Time{}),
		req.Limit)
	if err != nil {
		h.logger.Error("patterns query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *EngineHandler) RiskStates(c echo.Context) error {
	req := &models.RiskStatesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.queries.RiskStates(c.Request().Context(), req.TradeDate, req.ConfigID)
	if err != nil {
		h.logger.Error("risk states query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *EngineHandler) SaveRiskConfiguration(c echo.Context) error {
	req := &models.SaveRiskConfigurationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	cfg := &models.RiskConfiguration{
		ID:                req.ID,
		UserID:            req.UserID,
		CreatedAt:         time.Now().UTC(),
		StartTradeDate:    req.StartTradeDate,
		EndTradeDate:      req.EndTradeDate,
		Symbols:           req.Symbols,
		MaxTradeCount:     req.MaxTradeCount,
		MaxSLHitCount:     req.MaxSLHitCount,
		MaxTargetHitCount: req.MaxTargetHitCount,
		TargetPnL:         req.TargetPnL,
		MaxRiskCapacity:   req.MaxRiskCapacity,
		MaxTradeCapital:   req.MaxTradeCapital,
		Timeframe:         models.NormalizeTimeframe(req.Timeframe),
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	for _, a := range req.Algos {
		cfg.Algos = append(cfg.Algos, models.AlgoType(a))
	}

	if err := h.risk.SaveConfiguration(c.Request().Context(), cfg); err != nil {
		h.logger.Error("save risk configuration failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, cfg)
}
