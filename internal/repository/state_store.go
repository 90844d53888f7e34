package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domrepo "PatternTrade/internal/domain/repository"
	"PatternTrade/pkg/cache"
	applogger "PatternTrade/pkg/logger"
)

// twoTier bundles the hot cache, the durable database, and the shared
// write discipline: cache first, durable store second, failures in
// either tier logged and absorbed. The cache is authoritative for
// liveness reads; the store is authoritative for audit and recovery.
type twoTier struct {
	cache   cache.Service
	db      *sql.DB
	dbName  string
	l       *applogger.Logger
	metrics domrepo.Metrics
}

func newTwoTier(c cache.Service, db *sql.DB, dbName string, l *applogger.Logger, m domrepo.Metrics) twoTier {
	return twoTier{cache: c, db: db, dbName: dbName, l: l, metrics: m}
}

// putCache writes the document to the hot tier. Transient failures are
// logged, counted, and absorbed; the durable write still proceeds.
func (t *twoTier) putCache(ctx context.Context, key string, doc interface{}) {
	if err := t.cache.Set(ctx, key, doc, 0); err != nil {
		t.l.Error("cache write failed", applogger.String("key", key), applogger.Error(err))
		t.metrics.RecordPersistError("cache")
	}
}

// putStore runs the durable upsert. Failures are logged, not retried
// inline; the cache already holds the latest document.
func (t *twoTier) putStore(ctx context.Context, entity, query string, args ...interface{}) {
	if _, err := t.db.ExecContext(ctx, query, args...); err != nil {
		t.l.Error("store write failed", applogger.String("entity", entity), applogger.Error(err))
		t.metrics.RecordPersistError("store")
	}
}

// getDoc reads a document by cache key: hot tier first, durable store
// on miss. A store error degrades to not-found; it is never fatal to
// the caller's stream.
func (t *twoTier) getDoc(ctx context.Context, key, table string, dest interface{}) error {
	err := t.cache.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		t.l.Warn("cache read failed, falling back to store",
			applogger.String("key", key), applogger.Error(err))
	}

	q := fmt.Sprintf("SELECT doc FROM %s.%s FINAL WHERE cache_key = ?", t.dbName, table)
	var doc string
	if err := t.db.QueryRowContext(ctx, q, key).Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domrepo.ErrNotFound
		}
		t.l.Error("store read failed", applogger.String("key", key), applogger.Error(err))
		return domrepo.ErrNotFound
	}
	if err := json.Unmarshal([]byte(doc), dest); err != nil {
		return fmt.Errorf("decode %s doc: %w", table, err)
	}

	// repopulate the hot tier
	t.putCache(ctx, key, json.RawMessage(doc))
	return nil
}

func marshalDoc(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode doc: %w", err)
	}
	return string(b), nil
}
