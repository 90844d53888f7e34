package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"PatternTrade/internal/domain/models"
	drepo "PatternTrade/internal/domain/repository"
	"PatternTrade/pkg/logger"
	"PatternTrade/pkg/util"
)

// SocketFeed is a live CandleStream over a websocket market feed.
type SocketFeed struct {
	url            string
	symbols        []string
	timeframes     []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *logger.Logger

	// mu guards conn: the read loop swaps it on reconnect while the
	// ping loop writes through it.
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewSocketFeed(url string, symbols, timeframes []string, reconnectDelay, pingInterval time.Duration, l *logger.Logger) drepo.CandleStream {
	return &SocketFeed{
		url:            url,
		symbols:        symbols,
		timeframes:     timeframes,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		l:              l,
	}
}

// Connect establishes the websocket connection and subscribes to the
// configured symbol/timeframe pairs.
func (f *SocketFeed) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("socket connect: %w", err)
	}
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	f.l.Info("socket feed connected", logger.String("url", f.url))

	for _, s := range f.symbols {
		for _, tf := range f.timeframes {
			msg := map[string]string{"type": "subscribe", "symbol": s, "timeframe": tf}
			if err := conn.WriteJSON(msg); err != nil {
				return fmt.Errorf("subscribe %s %s: %w", s, tf, err)
			}
			f.l.Info("subscribed", logger.String("symbol", s), logger.String("timeframe", tf))
		}
	}
	return nil
}

func (f *SocketFeed) current() *websocket.Conn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn
}

type wireCandle struct {
	Symbol    string  `json:"symbol"`
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Timeframe string  `json:"timeframe"`
}

type wireFrame struct {
	Type string       `json:"type"`
	Data []wireCandle `json:"data"`
}

// Read streams candles and errors. Transport loss triggers a
// reconnect; the error channel carries only the fatal error that ended
// the stream after reconnecting failed.
func (f *SocketFeed) Read(ctx context.Context) (<-chan *models.Candle, <-chan error) {
	candles := make(chan *models.Candle, 1024)
	errs := make(chan error, 1)

	go func() {
		ticker := time.NewTicker(f.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if conn := f.current(); conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	go func() {
		defer close(candles)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				conn := f.current()
				if conn == nil {
					errs <- fmt.Errorf("socket conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					f.l.Warn("socket read failed, reconnecting", logger.Error(err))
					if rerr := f.reconnect(ctx); rerr != nil {
						errs <- fmt.Errorf("socket read: %w", err)
						return
					}
					continue
				}
				var frame wireFrame
				if err := json.Unmarshal(b, &frame); err != nil {
					// ignore non-candle frames
					continue
				}
				if frame.Type != "candle" {
					continue
				}
				for _, w := range frame.Data {
					c, ok := decodeCandle(w)
					if !ok {
						f.l.Warn("skipping malformed candle frame", logger.String("symbol", w.Symbol))
						continue
					}
					select {
					case candles <- c:
					default:
						f.l.Warn("dropping candle on backpressure", logger.String("symbol", c.Symbol))
					}
				}
			}
		}
	}()

	return candles, errs
}

func decodeCandle(w wireCandle) (*models.Candle, bool) {
	if w.Symbol == "" {
		return nil, false
	}
	ts, ok := util.ParseTime(w.Timestamp)
	if !ok {
		return nil, false
	}
	return &models.Candle{
		Symbol:    w.Symbol,
		Timestamp: ts,
		Open:      w.Open,
		High:      w.High,
		Low:       w.Low,
		Close:     w.Close,
		Volume:    w.Volume,
		Timeframe: models.NormalizeTimeframe(w.Timeframe),
	}, true
}

// reconnect closes the dead connection, waits out the backoff, and
// re-establishes the stream with fresh subscriptions.
func (f *SocketFeed) reconnect(ctx context.Context) error {
	_ = f.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.reconnectDelay):
	}
	return f.Connect(ctx)
}

func (f *SocketFeed) Close() error {
	f.mu.Lock()
	conn := f.conn
	f.conn = nil
	f.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}
