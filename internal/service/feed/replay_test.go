package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"PatternTrade/internal/domain/models"
	"PatternTrade/pkg/logger"
)

func TestReplayCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "candles.csv")
	data := "symbol,timestamp,open,high,low,close,volume\n" +
		"NIFTY,2023-06-01T10:00:00Z,100,101,99,100.5,500\n" +
		"NIFTY,bad-timestamp,100,101,99,100.5,500\n" +
		"NIFTY,2023-06-01T10:05:00Z,100.5,102,100,101.5,600\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	f := NewReplayFeed(nil, path, "NIFTY", models.TF5m, time.Time{}, time.Time{}, logger.Nop())
	if err := f.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	candles, errs := f.Read(context.Background())

	var got []*models.Candle
	for c := range candles {
		got = append(got, c)
	}
	if err, ok := <-errs; ok && err != nil {
		t.Fatalf("replay error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("candles = %d, want 2 (malformed row skipped)", len(got))
	}
	if got[0].Close != 100.5 || got[1].Close != 101.5 {
		t.Fatalf("candles out of order: %+v", got)
	}
	if got[0].Timeframe != models.TF5m {
		t.Fatalf("timeframe = %s, want default 5m", got[0].Timeframe)
	}
}

func TestReplayCSVRangeBounds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "candles.csv")
	data := "NIFTY,2023-06-01T09:00:00Z,100,101,99,100,500\n" +
		"NIFTY,2023-06-01T10:00:00Z,100,101,99,100,500\n" +
		"NIFTY,2023-06-01T11:00:00Z,100,101,99,100,500\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	from := time.Date(2023, 6, 1, 9, 30, 0, 0, time.UTC)
	to := time.Date(2023, 6, 1, 10, 30, 0, 0, time.UTC)
	f := NewReplayFeed(nil, path, "NIFTY", models.TF5m, from, to, logger.Nop())
	candles, _ := f.Read(context.Background())

	count := 0
	for range candles {
		count++
	}
	if count != 1 {
		t.Fatalf("candles in range = %d, want 1", count)
	}
}
