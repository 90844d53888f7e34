package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"PatternTrade/internal/domain/models"
	"PatternTrade/pkg/cache"
	"PatternTrade/pkg/logger"
	"PatternTrade/pkg/metrics"
)

type downCache struct{}

func (downCache) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("cache down")
}
func (downCache) Get(context.Context, string, interface{}) error { return errors.New("cache down") }
func (downCache) Delete(context.Context, ...string) error        { return errors.New("cache down") }
func (downCache) Exists(context.Context, ...string) (bool, error) {
	return false, errors.New("cache down")
}
func (downCache) Increment(context.Context, string) (int64, error) {
	return 0, errors.New("cache down")
}

func TestOrderStoreNextIDMonotonic(t *testing.T) {
	s := NewOrderStore(cache.NewMemoryCache(), nil, "patterntrade", logger.Nop(), metrics.Noop())

	var prev int64
	for i := 0; i < 5; i++ {
		id, err := s.NextID(context.Background())
		if err != nil {
			t.Fatalf("NextID: %v", err)
		}
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestOrderStoreNextIDFallback(t *testing.T) {
	s := NewOrderStore(downCache{}, nil, "patterntrade", logger.Nop(), metrics.Noop())

	a, err := s.NextID(context.Background())
	if err != nil {
		t.Fatalf("NextID with cache down: %v", err)
	}
	b, err := s.NextID(context.Background())
	if err != nil {
		t.Fatalf("NextID with cache down: %v", err)
	}
	if b <= a {
		t.Fatalf("fallback ids not monotonic: %d then %d", a, b)
	}
}

func TestOrderStoreOpenDedup(t *testing.T) {
	s := NewOrderStore(cache.NewMemoryCache(), nil, "patterntrade", logger.Nop(), metrics.Noop())
	ctx := context.Background()
	key := models.OrderDedupKey("NIFTY", models.HammerPatternAlgo, "u1")

	exists, err := s.OpenExists(ctx, key)
	if err != nil {
		t.Fatalf("OpenExists: %v", err)
	}
	if exists {
		t.Fatalf("dedup key should not exist before MarkOpen")
	}

	if err := s.MarkOpen(ctx, key); err != nil {
		t.Fatalf("MarkOpen: %v", err)
	}
	exists, err = s.OpenExists(ctx, key)
	if err != nil {
		t.Fatalf("OpenExists: %v", err)
	}
	if !exists {
		t.Fatalf("dedup key should exist after MarkOpen")
	}

	if err := s.ClearOpen(ctx, key); err != nil {
		t.Fatalf("ClearOpen: %v", err)
	}
	exists, err = s.OpenExists(ctx, key)
	if err != nil {
		t.Fatalf("OpenExists: %v", err)
	}
	if exists {
		t.Fatalf("dedup key should be gone after ClearOpen")
	}
}
