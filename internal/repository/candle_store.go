package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PatternTrade/internal/domain/models"
	domrepo "PatternTrade/internal/domain/repository"
	"PatternTrade/pkg/cache"
	"PatternTrade/pkg/logger"
)

// CandleStore holds the raw bar history. Candles are flat rows, not
// JSON documents: the backtest replay scans them in bulk and the
// column layout keeps those scans cheap.
type CandleStore struct {
	twoTier
}

func NewCandleStore(c cache.Service, db *sql.DB, dbName string, l *logger.Logger, m domrepo.Metrics) *CandleStore {
	return &CandleStore{twoTier: newTwoTier(c, db, dbName, l, m)}
}

func (s *CandleStore) Put(ctx context.Context, c *models.Candle) error {
	s.putStore(ctx, "candle",
		fmt.Sprintf(`INSERT INTO %s.candles
			(symbol, timeframe, ts, open, high, low, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, s.dbName),
		c.Symbol, string(c.Timeframe), c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume)
	return nil
}

// Range returns candles for one symbol and timeframe ordered by
// timestamp ascending, the order the replay source feeds them in.
func (s *CandleStore) Range(ctx context.Context, symbol string, tf models.Timeframe, from, to time.Time) ([]models.Candle, error) {
	q := fmt.Sprintf(`SELECT symbol, timeframe, ts, open, high, low, close, volume
		FROM %s.candles FINAL
		WHERE symbol = ? AND timeframe = ?`, s.dbName)
	args := []interface{}{symbol, string(tf)}
	if !from.IsZero() {
		q += " AND ts >= ?"
		args = append(args, from)
	}
	if !to.IsZero() {
		q += " AND ts <= ?"
		args = append(args, to)
	}
	q += " ORDER BY ts ASC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	var out []models.Candle
	for rows.Next() {
		var c models.Candle
		var tfCol string
		if err := rows.Scan(&c.Symbol, &tfCol, &c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.Timeframe = models.Timeframe(tfCol)
		out = append(out, c)
	}
	return out, rows.Err()
}

var _ domrepo.CandleStore = (*CandleStore)(nil)
