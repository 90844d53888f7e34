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

// SignalStore appends emitted trade signals to the durable store.
// Signals are append-only audit rows; there is no cache tier for them.
type SignalStore struct {
	twoTier
}

func NewSignalStore(c cache.Service, db *sql.DB, dbName string, l *applogger.Logger, m domrepo.Metrics) *SignalStore {
	return &SignalStore{twoTier: newTwoTier(c, db, dbName, l, m)}
}

func (s *SignalStore) Put(ctx context.Context, sig *models.TradeSignal) error {
	doc, err := marshalDoc(sig)
	if err != nil {
		return err
	}
	s.putStore(ctx, "trade_signal",
		fmt.Sprintf(`INSERT INTO %s.trade_signals
			(id, symbol, algo, direction, requested_at, doc)
			VALUES (?, ?, ?, ?, ?, ?)`, s.dbName),
		sig.ID, sig.Candle.Symbol, string(sig.Algo), string(sig.Direction), sig.RequestedAt, doc)
	return nil
}

func (s *SignalStore) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.TradeSignal, error) {
	q := fmt.Sprintf("SELECT doc FROM %s.trade_signals WHERE 1 = 1", s.dbName)
	args := make([]interface{}, 0, 3)
	if symbol != "" {
		q += " AND symbol = ?"
		args = append(args, symbol)
	}
	if !from.IsZero() {
		q += " AND requested_at >= ?"
		args = append(args, from)
	}
	if !to.IsZero() {
		q += " AND requested_at <= ?"
		args = append(args, to)
	}
	q += " ORDER BY requested_at DESC"
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query trade signals: %w", err)
	}
	defer rows.Close()

	var out []*models.TradeSignal
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan trade signal: %w", err)
		}
		var sig models.TradeSignal
		if err := json.Unmarshal([]byte(doc), &sig); err != nil {
			s.l.Warn("skipping malformed signal doc", applogger.Error(err))
			continue
		}
		out = append(out, &sig)
	}
	return out, rows.Err()
}

var _ domrepo.SignalStore = (*SignalStore)(nil)
