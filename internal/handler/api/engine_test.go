package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"PatternTrade/internal/domain/models"
	domrepo "PatternTrade/internal/domain/repository"
	"PatternTrade/internal/usecase"
	"PatternTrade/pkg/logger"
)

type stubStores struct {
	snapshots map[string]*models.MarketSnapshot
	candles   []models.Candle
}

func (s *stubStores) Put(context.Context, *models.MarketSnapshot) error { return nil }

func (s *stubStores) Get(_ context.Context, key string) (*models.MarketSnapshot, error) {
	snap, ok := s.snapshots[key]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return snap, nil
}

func (s *stubStores) Query(context.Context, string, models.Timeframe, time.Time, time.Time) ([]*models.MarketSnapshot, error) {
	return nil, nil
}

type stubCandles struct{ rows []models.Candle }

func (s *stubCandles) Put(context.Context, *models.Candle) error { return nil }

func (s *stubCandles) Range(context.Context, string, models.Timeframe, time.Time, time.Time) ([]models.Candle, error) {
	return s.rows, nil
}

type stubRisk struct{ saved *models.RiskConfiguration }

func (s *stubRisk) Put(context.Context, *models.RiskState) error { return nil }
func (s *stubRisk) Get(context.Context, string) (*models.RiskState, error) {
	return nil, domrepo.ErrNotFound
}
func (s *stubRisk) PutAlgoList(context.Context, string, []models.AlgoType) error { return nil }
func (s *stubRisk) GetAlgoList(context.Context, string) ([]models.AlgoType, error) {
	return nil, domrepo.ErrNotFound
}
func (s *stubRisk) Configurations(context.Context, string) ([]*models.RiskConfiguration, error) {
	return nil, nil
}
func (s *stubRisk) SaveConfiguration(_ context.Context, cfg *models.RiskConfiguration) error {
	s.saved = cfg
	return nil
}
func (s *stubRisk) Query(context.Context, string, string) ([]*models.RiskState, error) {
	return nil, nil
}

type stubOrders struct{}

func (stubOrders) Put(context.Context, *models.Order) error         { return nil }
func (stubOrders) NextID(context.Context) (int64, error)            { return 1, nil }
func (stubOrders) OpenExists(context.Context, string) (bool, error) { return false, nil }
func (stubOrders) MarkOpen(context.Context, string) error           { return nil }
func (stubOrders) ClearOpen(context.Context, string) error          { return nil }
func (stubOrders) Query(context.Context, domrepo.OrderFilter) ([]*models.Order, error) {
	return nil, nil
}

type stubSignals struct{}

func (stubSignals) Put(context.Context, *models.TradeSignal) error { return nil }
func (stubSignals) Query(context.Context, string, time.Time, time.Time, int) ([]*models.TradeSignal, error) {
	return nil, nil
}

type stubPatterns struct{}

func (stubPatterns) Put(context.Context, *models.PatternCandle) error { return nil }
func (stubPatterns) Query(context.Context, string, models.AlgoType, time.Time, time.Time, int) ([]*models.PatternCandle, error) {
	return nil, nil
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, snapshots *stubStores, risk *stubRisk) *echo.Echo {
	t.Helper()
	queries := usecase.NewQueryService(
		&stubCandles{rows: snapshots.candles},
		snapshots,
		risk,
		stubOrders{},
		stubSignals{},
		stubPatterns{},
	)
	h := NewEngineHandler(logger.Nop(), queries, risk)
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func doRequest(e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestCandlesRequiresSymbol(t *testing.T) {
	e := newTestServer(t, &stubStores{snapshots: map[string]*models.MarketSnapshot{}}, &stubRisk{})

	rec, env := doRequest(e, http.MethodGet, "/api/candles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, http.StatusBadRequest, env.Status)
}

func TestCandlesReturnsRows(t *testing.T) {
	snaps := &stubStores{
		snapshots: map[string]*models.MarketSnapshot{},
		candles: []models.Candle{
			{Symbol: "NIFTY", Timestamp: time.Date(2024, 10, 10, 9, 15, 0, 0, time.UTC), Open: 100, High: 101, Low: 99, Close: 100.5, Timeframe: models.TF5m},
		},
	}
	e := newTestServer(t, snaps, &stubRisk{})

	rec, env := doRequest(e, http.MethodGet, "/api/candles?symbol=NIFTY", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, http.StatusOK, env.Status)

	var list struct {
		Rows  []models.Candle `json:"rows"`
		Total int64           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Rows, 1)
	require.Equal(t, "NIFTY", list.Rows[0].Symbol)
}

func TestMarketStateNotFound(t *testing.T) {
	e := newTestServer(t, &stubStores{snapshots: map[string]*models.MarketSnapshot{}}, &stubRisk{})

	_, env := doRequest(e, http.MethodGet, "/api/market-state?symbol=NIFTY&trade_date=2024-10-10", "")
	require.Equal(t, http.StatusNotFound, env.Status)
}

func TestMarketStateFound(t *testing.T) {
	key := models.MarketStateKey("2024-10-10", "NIFTY", models.TF5m)
	snaps := &stubStores{snapshots: map[string]*models.MarketSnapshot{
		key: {CacheKey: key, TradeDate: "2024-10-10", Symbol: "NIFTY", Timeframe: models.TF5m, CurrentTrend: models.TrendBullish},
	}}
	e := newTestServer(t, snaps, &stubRisk{})

	_, env := doRequest(e, http.MethodGet, "/api/market-state?symbol=NIFTY&trade_date=2024-10-10&timeframe=5m", "")
	require.Equal(t, http.StatusOK, env.Status)

	var snap models.MarketSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	require.Equal(t, models.TrendBullish, snap.CurrentTrend)
}

func TestOrdersRejectsBadPhase(t *testing.T) {
	e := newTestServer(t, &stubStores{snapshots: map[string]*models.MarketSnapshot{}}, &stubRisk{})

	_, env := doRequest(e, http.MethodGet, "/api/orders?phase=Pending", "")
	require.Equal(t, http.StatusBadRequest, env.Status)
}

func TestSaveRiskConfiguration(t *testing.T) {
	risk := &stubRisk{}
	e := newTestServer(t, &stubStores{snapshots: map[string]*models.MarketSnapshot{}}, risk)

	body := `{
		"user_id": "u-1",
		"start_trade_date": "2024-10-01",
		"end_trade_date": "2024-12-31",
		"symbols": ["NIFTY"],
		"trading_algo_types": ["HammerPatternAlgo"],
		"max_trade_count": 20,
		"max_sl_hit_count": 3,
		"max_target_hit_count": 5,
		"targeted_pnl": 5000,
		"max_risk_capacity": 2000,
		"max_trade_capital": 10000
	}`
	_, env := doRequest(e, http.MethodPost, "/api/risk/configurations", body)
	require.Equal(t, http.StatusCreated, env.Status)

	require.NotNil(t, risk.saved)
	require.NotEmpty(t, risk.saved.ID)
	require.Equal(t, "u-1", risk.saved.UserID)
	require.Equal(t, []models.AlgoType{models.HammerPatternAlgo}, risk.saved.Algos)
}

func TestSaveRiskConfigurationRejectsMissingCapital(t *testing.T) {
	risk := &stubRisk{}
	e := newTestServer(t, &stubStores{snapshots: map[string]*models.MarketSnapshot{}}, risk)

	body := `{
		"user_id": "u-1",
		"start_trade_date": "2024-10-01",
		"end_trade_date": "2024-12-31",
		"symbols": ["NIFTY"],
		"trading_algo_types": ["HammerPatternAlgo"],
		"max_trade_count": 20,
		"max_sl_hit_count": 3,
		"max_target_hit_count": 5
	}`
	_, env := doRequest(e, http.MethodPost, "/api/risk/configurations", body)
	require.Equal(t, http.StatusBadRequest, env.Status)
	require.Nil(t, risk.saved)
}
