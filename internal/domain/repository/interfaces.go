package repository

import (
	"context"
	"errors"
	"time"

	"PatternTrade/internal/domain/models"
)

// ErrNotFound is returned when neither tier holds the requested key.
var ErrNotFound = errors.New("repository: not found")

// CandleStream is an ordered candle input: a live socket/Kafka feed or
// a bounded backtest replay.
type CandleStream interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Candle, <-chan error)
	Close() error
}

// SnapshotStore persists MarketSnapshots through both tiers: cache
// first, durable store second; reads try cache and fall back.
type SnapshotStore interface {
	Put(ctx context.Context, snap *models.MarketSnapshot) error
	Get(ctx context.Context, cacheKey string) (*models.MarketSnapshot, error)
	Query(ctx context.Context, symbol string, tf models.Timeframe, from, to time.Time) ([]*models.MarketSnapshot, error)
}

// RiskStore persists RiskStates and the per-day algorithm allow-list,
// and reads active configurations from the durable store.
type RiskStore interface {
	Put(ctx context.Context, st *models.RiskState) error
	Get(ctx context.Context, cacheKey string) (*models.RiskState, error)
	PutAlgoList(ctx context.Context, cacheKey string, algos []models.AlgoType) error
	GetAlgoList(ctx context.Context, cacheKey string) ([]models.AlgoType, error)
	Configurations(ctx context.Context, activeOn string) ([]*models.RiskConfiguration, error)
	SaveConfiguration(ctx context.Context, cfg *models.RiskConfiguration) error
	Query(ctx context.Context, tradeDate, configID string) ([]*models.RiskState, error)
}

// OrderFilter narrows order queries for the read-only API.
type OrderFilter struct {
	Symbol string
	UserID string
	Algo   models.AlgoType
	Phase  models.OrderPhase
	From   time.Time
	To     time.Time
	Limit  int
}

// OrderStore persists orders and owns the dedup key and the monotonic
// order identity sequence.
type OrderStore interface {
	Put(ctx context.Context, o *models.Order) error
	NextID(ctx context.Context) (int64, error)
	// OpenExists is the fast cache existence check used, together with
	// the ledger lock, to serialize dispatch per (symbol, algo, user).
	OpenExists(ctx context.Context, dedupKey string) (bool, error)
	MarkOpen(ctx context.Context, dedupKey string) error
	ClearOpen(ctx context.Context, dedupKey string) error
	Query(ctx context.Context, f OrderFilter) ([]*models.Order, error)
}

// SignalStore records every emitted trade signal for audit.
type SignalStore interface {
	Put(ctx context.Context, s *models.TradeSignal) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.TradeSignal, error)
}

// PatternStore records pattern-matched candles for audit.
type PatternStore interface {
	Put(ctx context.Context, pc *models.PatternCandle) error
	Query(ctx context.Context, symbol string, algo models.AlgoType, from, to time.Time, limit int) ([]*models.PatternCandle, error)
}

// CandleStore holds the raw candle history in the durable store; the
// backtest replay and the query API read from it.
type CandleStore interface {
	Put(ctx context.Context, c *models.Candle) error
	Range(ctx context.Context, symbol string, tf models.Timeframe, from, to time.Time) ([]models.Candle, error)
}

// Metrics is the observability sink for the pipeline.
type Metrics interface {
	RecordCandle(symbol, timeframe string)
	RecordSignal(symbol, algo string)
	RecordOrderTransition(phase string)
	RecordRiskRejection(reason string)
	RecordPersistError(tier string)
	RecordTickLatency(timeframe string, seconds float64)
}
