package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"PatternTrade/pkg/logger"
)

// TestSocketFeedReconnectsAfterDrop drops the first connection after
// one frame and verifies the feed dials again and keeps streaming.
func TestSocketFeedReconnectsAfterDrop(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var mu sync.Mutex
	dials := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		dials++
		n := dials
		mu.Unlock()

		frame := wireFrame{Type: "candle", Data: []wireCandle{{
			Symbol:    "NIFTY",
			Timestamp: "2023-06-01T10:00:00Z",
			Open:      100, High: 101, Low: 99, Close: 100.5, Volume: 500,
			Timeframe: "5m",
		}}}
		_ = conn.WriteJSON(frame)
		if n == 1 {
			conn.Close()
			return
		}
		// Hold the second connection open until the client hangs up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	f := NewSocketFeed(url, []string{"NIFTY"}, []string{"5m"}, 10*time.Millisecond, time.Minute, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := f.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer f.Close()

	candles, errs := f.Read(ctx)
	for i := 0; i < 2; i++ {
		select {
		case c := <-candles:
			if c.Symbol != "NIFTY" || c.Close != 100.5 {
				t.Fatalf("candle %d wrong: %+v", i, c)
			}
		case err := <-errs:
			t.Fatalf("stream error before candle %d: %v", i, err)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for candle %d", i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if dials != 2 {
		t.Fatalf("dials = %d, want 2", dials)
	}
}
