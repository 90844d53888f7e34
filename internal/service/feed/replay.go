package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"PatternTrade/internal/domain/models"
	drepo "PatternTrade/internal/domain/repository"
	"PatternTrade/pkg/logger"
	"PatternTrade/pkg/util"
)

// ReplayFeed is the backtest CandleStream: it replays a bounded
// historical range from the durable candle store, or from a CSV file
// when one is configured. Candles are emitted strictly in file/store
// order and the stream ends when the range is exhausted.
type ReplayFeed struct {
	store   drepo.CandleStore
	csvPath string

	symbol    string
	timeframe models.Timeframe
	from, to  time.Time

	l *logger.Logger
}

func NewReplayFeed(store drepo.CandleStore, csvPath, symbol string, tf models.Timeframe, from, to time.Time, l *logger.Logger) drepo.CandleStream {
	return &ReplayFeed{
		store:     store,
		csvPath:   csvPath,
		symbol:    symbol,
		timeframe: tf,
		from:      from,
		to:        to,
		l:         l,
	}
}

func (f *ReplayFeed) Connect(_ context.Context) error {
	if f.csvPath != "" {
		if _, err := os.Stat(f.csvPath); err != nil {
			return fmt.Errorf("replay csv: %w", err)
		}
	}
	return nil
}

func (f *ReplayFeed) Read(ctx context.Context) (<-chan *models.Candle, <-chan error) {
	candles := make(chan *models.Candle, 256)
	errs := make(chan error, 1)

	go func() {
		defer close(candles)
		defer close(errs)

		var err error
		if f.csvPath != "" {
			err = f.replayCSV(ctx, candles)
		} else {
			err = f.replayStore(ctx, candles)
		}
		if err != nil {
			errs <- err
		}
	}()

	return candles, errs
}

func (f *ReplayFeed) Close() error { return nil }

func (f *ReplayFeed) replayStore(ctx context.Context, out chan<- *models.Candle) error {
	history, err := f.store.Range(ctx, f.symbol, f.timeframe, f.from, f.to)
	if err != nil {
		return fmt.Errorf("load replay range: %w", err)
	}
	f.l.Info("replaying stored candles",
		logger.String("symbol", f.symbol),
		logger.String("timeframe", string(f.timeframe)),
		logger.Int("count", len(history)))

	for i := range history {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- &history[i]:
		}
	}
	return nil
}

// CSV layout: symbol,timestamp,open,high,low,close,volume[,timeframe].
// A header row and unparseable rows are skipped.
func (f *ReplayFeed) replayCSV(ctx context.Context, out chan<- *models.Candle) error {
	file, err := os.Open(f.csvPath)
	if err != nil {
		return fmt.Errorf("open replay csv: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	sent := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read replay csv: %w", err)
		}
		c, ok := f.parseRow(rec)
		if !ok {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- c:
			sent++
		}
	}
	f.l.Info("csv replay finished", logger.String("path", f.csvPath), logger.Int("count", sent))
	return nil
}

func (f *ReplayFeed) parseRow(rec []string) (*models.Candle, bool) {
	if len(rec) < 7 || rec[0] == "" || rec[0] == "symbol" {
		return nil, false
	}
	ts, ok := util.ParseTime(rec[1])
	if !ok {
		return nil, false
	}
	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(rec[i+2], 64)
		if err != nil {
			return nil, false
		}
		vals[i] = v
	}
	tf := f.timeframe
	if len(rec) > 7 {
		tf = models.NormalizeTimeframe(rec[7])
	}
	if !f.from.IsZero() && ts.Before(f.from) {
		return nil, false
	}
	if !f.to.IsZero() && ts.After(f.to) {
		return nil, false
	}
	return &models.Candle{
		Symbol:    rec[0],
		Timestamp: ts,
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
		Timeframe: tf,
	}, true
}
