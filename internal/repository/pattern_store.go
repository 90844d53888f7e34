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

// PatternStore appends pattern-matched candles to the durable store
// for later inspection of what the detectors saw.
type PatternStore struct {
	twoTier
}

func NewPatternStore(c cache.Service, db *sql.DB, dbName string, l *applogger.Logger, m domrepo.Metrics) *PatternStore {
	return &PatternStore{twoTier: newTwoTier(c, db, dbName, l, m)}
}

func (s *PatternStore) Put(ctx context.Context, pc *models.PatternCandle) error {
	doc, err := marshalDoc(pc)
	if err != nil {
		return err
	}
	s.putStore(ctx, "pattern_candle",
		fmt.Sprintf(`INSERT INTO %s.pattern_candles
			(symbol, algo, identified_at, candle_ts, doc)
			VALUES (?, ?, ?, ?, ?)`, s.dbName),
		pc.Candle.Symbol, string(pc.Algo), pc.IdentifiedAt, pc.Candle.Timestamp, doc)
	return nil
}

func (s *PatternStore) Query(ctx context.Context, symbol string, algo models.AlgoType, from, to time.Time, limit int) ([]*models.PatternCandle, error) {
	q := fmt.Sprintf("SELECT doc FROM %s.pattern_candles WHERE 1 = 1", s.dbName)
	args := make([]interface{}, 0, 4)
	if symbol != "" {
		q += " AND symbol = ?"
		args = append(args, symbol)
	}
	if algo != "" {
		q += " AND algo = ?"
		args = append(args, string(algo))
	}
	if !from.IsZero() {
		q += " AND identified_at >= ?"
		args = append(args, from)
	}
	if !to.IsZero() {
		q += " AND identified_at <= ?"
		args = append(args, to)
	}
	q += " ORDER BY identified_at DESC"
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query pattern candles: %w", err)
	}
	defer rows.Close()

	var out []*models.PatternCandle
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan pattern candle: %w", err)
		}
		var pc models.PatternCandle
		if err := json.Unmarshal([]byte(doc), &pc); err != nil {
			s.l.Warn("skipping malformed pattern doc", applogger.Error(err))
			continue
		}
		out = append(out, &pc)
	}
	return out, rows.Err()
}

var _ domrepo.PatternStore = (*PatternStore)(nil)
