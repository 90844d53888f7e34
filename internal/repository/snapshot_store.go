package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"PatternTrade/internal/domain/models"
	domrepo "PatternTrade/internal/domain/repository"
	"PatternTrade/pkg/cache"
	applogger "PatternTrade/pkg/logger"
)

// SnapshotStore is the two-tier MarketSnapshot repository.
type SnapshotStore struct {
	twoTier
}

func NewSnapshotStore(c cache.Service, db *sql.DB, dbName string, l *applogger.Logger, m domrepo.Metrics) *SnapshotStore {
	return &SnapshotStore{newTwoTier(c, db, dbName, l, m)}
}

func (s *SnapshotStore) Put(ctx context.Context, snap *models.MarketSnapshot) error {
	doc, err := marshalDoc(snap)
	if err != nil {
		return err
	}

	s.putCache(ctx, snap.CacheKey, json.RawMessage(doc))
	s.putStore(ctx, "market_snapshot",
		fmt.Sprintf(`INSERT INTO %s.market_snapshots
			(cache_key, trade_date, symbol, timeframe, updated_at, doc)
			VALUES (?, ?, ?, ?, ?, ?)`, s.dbName),
		snap.CacheKey, snap.TradeDate, snap.Symbol, string(snap.Timeframe), snap.UpdatedAt, doc)
	return nil
}

func (s *SnapshotStore) Get(ctx context.Context, cacheKey string) (*models.MarketSnapshot, error) {
	var snap models.MarketSnapshot
	if err := s.getDoc(ctx, cacheKey, "market_snapshots", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *SnapshotStore) Query(ctx context.Context, symbol string, tf models.Timeframe, from, to time.Time) ([]*models.MarketSnapshot, error) {
	q := fmt.Sprintf(`SELECT doc FROM %s.market_snapshots FINAL
		WHERE symbol = ? AND timeframe = ? AND trade_date >= ? AND trade_date <= ?
		ORDER BY trade_date ASC`, s.dbName)

	rows, err := s.db.QueryContext(ctx, q, symbol, string(tf),
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []*models.MarketSnapshot
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var snap models.MarketSnapshot
		if err := json.Unmarshal([]byte(doc), &snap); err != nil {
			s.l.Warn("skipping malformed snapshot doc", applogger.Error(err))
			continue
		}
		out = append(out, &snap)
	}
	return out, rows.Err()
}
