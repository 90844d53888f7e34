package usecase

import (
	"context"
	"sync"
	"time"

	"PatternTrade/internal/domain/models"
	"PatternTrade/internal/domain/repository"
)

// In-memory store fakes. They honor the same contracts as the
// two-tier stores (ErrNotFound on miss, last-write-wins by key) so
// the pipeline behaves identically under test.

type memSnapshotStore struct {
	mu   sync.Mutex
	byKey map[string]*models.MarketSnapshot
}

func newMemSnapshotStore() *memSnapshotStore {
	return &memSnapshotStore{byKey: make(map[string]*models.MarketSnapshot)}
}

func (s *memSnapshotStore) Put(_ context.Context, snap *models.MarketSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *snap
	cp.Candles = append([]models.Candle(nil), snap.Candles...)
	s.byKey[snap.CacheKey] = &cp
	return nil
}

func (s *memSnapshotStore) Get(_ context.Context, key string) (*models.MarketSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.byKey[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *snap
	cp.Candles = append([]models.Candle(nil), snap.Candles...)
	return &cp, nil
}

func (s *memSnapshotStore) Query(context.Context, string, models.Timeframe, time.Time, time.Time) ([]*models.MarketSnapshot, error) {
	return nil, nil
}

type memRiskStore struct {
	mu      sync.Mutex
	byKey   map[string]*models.RiskState
	algos   map[string][]models.AlgoType
	configs []*models.RiskConfiguration
}

func newMemRiskStore(configs ...*models.RiskConfiguration) *memRiskStore {
	return &memRiskStore{
		byKey:   make(map[string]*models.RiskState),
		algos:   make(map[string][]models.AlgoType),
		configs: configs,
	}
}

func (s *memRiskStore) Put(_ context.Context, st *models.RiskState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.byKey[st.CacheKey] = &cp
	return nil
}

func (s *memRiskStore) Get(_ context.Context, key string) (*models.RiskState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.byKey[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *memRiskStore) PutAlgoList(_ context.Context, key string, algos []models.AlgoType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.algos[key] = algos
	return nil
}

func (s *memRiskStore) GetAlgoList(_ context.Context, key string) ([]models.AlgoType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	algos, ok := s.algos[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return algos, nil
}

func (s *memRiskStore) Configurations(context.Context, string) ([]*models.RiskConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.RiskConfiguration(nil), s.configs...), nil
}

func (s *memRiskStore) SaveConfiguration(_ context.Context, cfg *models.RiskConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs = append(s.configs, cfg)
	return nil
}

func (s *memRiskStore) Query(_ context.Context, tradeDate, configID string) ([]*models.RiskState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.RiskState
	for _, st := range s.byKey {
		if st.TradeDate == tradeDate && st.ConfigID == configID {
			cp := *st
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memOrderStore struct {
	mu     sync.Mutex
	seq    int64
	orders map[int64]*models.Order
	open   map[string]struct{}
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{
		orders: make(map[int64]*models.Order),
		open:   make(map[string]struct{}),
	}
}

func (s *memOrderStore) Put(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *memOrderStore) NextID(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

func (s *memOrderStore) OpenExists(_ context.Context, dedupKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.open[dedupKey]
	return ok, nil
}

func (s *memOrderStore) MarkOpen(_ context.Context, dedupKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open[dedupKey] = struct{}{}
	return nil
}

func (s *memOrderStore) ClearOpen(_ context.Context, dedupKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.open, dedupKey)
	return nil
}

func (s *memOrderStore) Query(_ context.Context, f repository.OrderFilter) ([]*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Order
	for _, o := range s.orders {
		if f.Symbol != "" && o.Symbol != f.Symbol {
			continue
		}
		if f.Phase != "" && o.Phase != f.Phase {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

type memSignalStore struct {
	mu      sync.Mutex
	signals []*models.TradeSignal
}

func newMemSignalStore() *memSignalStore { return &memSignalStore{} }

func (s *memSignalStore) Put(_ context.Context, sig *models.TradeSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sig
	s.signals = append(s.signals, &cp)
	return nil
}

func (s *memSignalStore) Query(context.Context, string, time.Time, time.Time, int) ([]*models.TradeSignal, error) {
	return nil, nil
}

type memPatternStore struct {
	mu       sync.Mutex
	patterns []*models.PatternCandle
}

func newMemPatternStore() *memPatternStore { return &memPatternStore{} }

func (s *memPatternStore) Put(_ context.Context, pc *models.PatternCandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *pc
	s.patterns = append(s.patterns, &cp)
	return nil
}

func (s *memPatternStore) Query(context.Context, string, models.AlgoType, time.Time, time.Time, int) ([]*models.PatternCandle, error) {
	return nil, nil
}

type memCandleStore struct {
	mu      sync.Mutex
	candles []models.Candle
}

func newMemCandleStore() *memCandleStore { return &memCandleStore{} }

func (s *memCandleStore) Put(_ context.Context, c *models.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candles = append(s.candles, *c)
	return nil
}

func (s *memCandleStore) Range(context.Context, string, models.Timeframe, time.Time, time.Time) ([]models.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Candle(nil), s.candles...), nil
}
