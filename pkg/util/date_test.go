package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestTradingDay(t *testing.T) {
	d := time.Date(2024, 10, 10, 14, 35, 0, 0, time.UTC)
	if got := TradingDay(d); got != "2024-10-10" {
		t.Fatalf("unexpected trading day %q", got)
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("15:15")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if h != 15 || m != 15 {
		t.Fatalf("unexpected clock %d:%d", h, m)
	}
	if _, _, err := ParseClock("25:99"); err == nil {
		t.Fatalf("expected error for invalid clock")
	}
}

func TestAfterClock(t *testing.T) {
	cases := []struct {
		at   time.Time
		want bool
	}{
		{time.Date(2024, 10, 10, 15, 15, 0, 0, time.UTC), false},
		{time.Date(2024, 10, 10, 15, 15, 1, 0, time.UTC), true},
		{time.Date(2024, 10, 10, 15, 20, 0, 0, time.UTC), true},
		{time.Date(2024, 10, 10, 16, 0, 0, 0, time.UTC), true},
		{time.Date(2024, 10, 10, 15, 14, 59, 0, time.UTC), false},
		{time.Date(2024, 10, 10, 9, 30, 0, 0, time.UTC), false},
	}
	for _, c := range cases {
		if got := AfterClock(c.at, 15, 15); got != c.want {
			t.Fatalf("AfterClock(%v) = %v, want %v", c.at, got, c.want)
		}
	}
}
