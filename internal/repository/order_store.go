package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"PatternTrade/internal/domain/models"
	domrepo "PatternTrade/internal/domain/repository"
	"PatternTrade/pkg/cache"
	applogger "PatternTrade/pkg/logger"
)

const orderSeqKey = "ORDER_SEQ"

// OrderStore is the two-tier Order repository. Besides documents it
// owns the monotonic order identity sequence and the open-order dedup
// keys in the cache tier.
type OrderStore struct {
	twoTier
	fallbackSeq atomic.Int64
}

func NewOrderStore(c cache.Service, db *sql.DB, dbName string, l *applogger.Logger, m domrepo.Metrics) *OrderStore {
	return &OrderStore{twoTier: newTwoTier(c, db, dbName, l, m)}
}

func (s *OrderStore) Put(ctx context.Context, o *models.Order) error {
	doc, err := marshalDoc(o)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	s.putStore(ctx, "order",
		fmt.Sprintf(`INSERT INTO %s.orders
			(id, dedup_key, symbol, user_id, algo, phase, placed_at, updated_at, doc)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.dbName),
		o.ID, o.DedupKey, o.Symbol, o.UserID, string(o.Algo), string(o.Phase), o.PlacedAt, now, doc)
	return nil
}

// NextID allocates the next monotonic order identity from the cache
// sequence; if the cache is down it falls back to a process-local
// counter offset by the wall clock so identities stay unique.
func (s *OrderStore) NextID(ctx context.Context) (int64, error) {
	id, err := s.cache.Increment(ctx, orderSeqKey)
	if err == nil {
		return id, nil
	}
	s.l.Warn("order sequence unavailable, using local fallback", applogger.Error(err))
	if s.fallbackSeq.Load() == 0 {
		s.fallbackSeq.Store(time.Now().UnixMilli())
	}
	return s.fallbackSeq.Add(1), nil
}

func (s *OrderStore) OpenExists(ctx context.Context, dedupKey string) (bool, error) {
	return s.cache.Exists(ctx, dedupKey)
}

func (s *OrderStore) MarkOpen(ctx context.Context, dedupKey string) error {
	return s.cache.Set(ctx, dedupKey, "1", 0)
}

func (s *OrderStore) ClearOpen(ctx context.Context, dedupKey string) error {
	return s.cache.Delete(ctx, dedupKey)
}

func (s *OrderStore) Query(ctx context.Context, f domrepo.OrderFilter) ([]*models.Order, error) {
	q := fmt.Sprintf("SELECT doc FROM %s.orders FINAL WHERE 1 = 1", s.dbName)
	args := make([]interface{}, 0, 6)

	if f.Symbol != "" {
		q += " AND symbol = ?"
		args = append(args, f.Symbol)
	}
	if f.UserID != "" {
		q += " AND user_id = ?"
		args = append(args, f.UserID)
	}
	if f.Algo != "" {
		q += " AND algo = ?"
		args = append(args, string(f.Algo))
	}
	if f.Phase != "" {
		q += " AND phase = ?"
		args = append(args, string(f.Phase))
	}
	if !f.From.IsZero() {
		q += " AND placed_at >= ?"
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		q += " AND placed_at <= ?"
		args = append(args, f.To)
	}
	q += " ORDER BY placed_at DESC"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []*models.Order
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		var o models.Order
		if err := json.Unmarshal([]byte(doc), &o); err != nil {
			s.l.Warn("skipping malformed order doc", applogger.Error(err))
			continue
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

var _ domrepo.OrderStore = (*OrderStore)(nil)
