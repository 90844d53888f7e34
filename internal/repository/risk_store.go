package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"PatternTrade/internal/domain/models"
	domrepo "PatternTrade/internal/domain/repository"
	"PatternTrade/pkg/cache"
	applogger "PatternTrade/pkg/logger"
)

// RiskStore is the two-tier RiskState repository. The per-day algo
// allow-list lives only in the cache tier; it is derivable from the
// configuration on a cold start.
type RiskStore struct {
	twoTier
}

func NewRiskStore(c cache.Service, db *sql.DB, dbName string, l *applogger.Logger, m domrepo.Metrics) *RiskStore {
	return &RiskStore{newTwoTier(c, db, dbName, l, m)}
}

func (s *RiskStore) Put(ctx context.Context, st *models.RiskState) error {
	doc, err := marshalDoc(st)
	if err != nil {
		return err
	}

	eligible := uint8(0)
	if st.Eligible {
		eligible = 1
	}

	s.putCache(ctx, st.CacheKey, json.RawMessage(doc))
	s.putStore(ctx, "risk_state",
		fmt.Sprintf(`INSERT INTO %s.risk_states
			(cache_key, trade_date, symbol, config_id, user_id, eligible, updated_at, doc)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, s.dbName),
		st.CacheKey, st.TradeDate, st.Symbol, st.ConfigID, st.UserID, eligible, st.UpdatedAt, doc)
	return nil
}

func (s *RiskStore) Get(ctx context.Context, cacheKey string) (*models.RiskState, error) {
	var st models.RiskState
	if err := s.getDoc(ctx, cacheKey, "risk_states", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *RiskStore) PutAlgoList(ctx context.Context, cacheKey string, algos []models.AlgoType) error {
	if err := s.cache.Set(ctx, cacheKey, algos, 0); err != nil {
		s.l.Error("algo list cache write failed", applogger.String("key", cacheKey), applogger.Error(err))
		s.metrics.RecordPersistError("cache")
	}
	return nil
}

func (s *RiskStore) GetAlgoList(ctx context.Context, cacheKey string) ([]models.AlgoType, error) {
	var algos []models.AlgoType
	if err := s.cache.Get(ctx, cacheKey, &algos); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, domrepo.ErrNotFound
		}
		return nil, err
	}
	return algos, nil
}

// Configurations returns the risk configurations whose date range
// covers the given trading day.
func (s *RiskStore) Configurations(ctx context.Context, activeOn string) ([]*models.RiskConfiguration, error) {
	q := fmt.Sprintf(`SELECT doc FROM %s.risk_configurations FINAL
		WHERE start_trade_date <= ? AND end_trade_date >= ?`, s.dbName)

	rows, err := s.db.QueryContext(ctx, q, activeOn, activeOn)
	if err != nil {
		return nil, fmt.Errorf("query risk configurations: %w", err)
	}
	defer rows.Close()

	var out []*models.RiskConfiguration
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan risk configuration: %w", err)
		}
		var cfg models.RiskConfiguration
		if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
			s.l.Warn("skipping malformed risk configuration doc", applogger.Error(err))
			continue
		}
		out = append(out, &cfg)
	}
	return out, rows.Err()
}

func (s *RiskStore) Query(ctx context.Context, tradeDate, configID string) ([]*models.RiskState, error) {
	q := fmt.Sprintf(`SELECT doc FROM %s.risk_states FINAL WHERE trade_date = ?`, s.dbName)
	args := []interface{}{tradeDate}
	if configID != "" {
		q += " AND config_id = ?"
		args = append(args, configID)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query risk states: %w", err)
	}
	defer rows.Close()

	var out []*models.RiskState
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan risk state: %w", err)
		}
		var st models.RiskState
		if err := json.Unmarshal([]byte(doc), &st); err != nil {
			s.l.Warn("skipping malformed risk state doc", applogger.Error(err))
			continue
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

// SaveConfiguration upserts a risk configuration; used by bootstrap
// seeding and tests.
func (s *RiskStore) SaveConfiguration(ctx context.Context, cfg *models.RiskConfiguration) error {
	doc, err := marshalDoc(cfg)
	if err != nil {
		return err
	}
	s.putStore(ctx, "risk_configuration",
		fmt.Sprintf(`INSERT INTO %s.risk_configurations
			(id, user_id, start_trade_date, end_trade_date, created_at, doc)
			VALUES (?, ?, ?, ?, ?, ?)`, s.dbName),
		cfg.ID, cfg.UserID, cfg.StartTradeDate, cfg.EndTradeDate, cfg.CreatedAt, doc)
	return nil
}
