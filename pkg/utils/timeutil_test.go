package utils

import (
	"testing"
	"time"
)

func TestTradingDate(t *testing.T) {
	ny := ExchangeLocation("America/New_York", -14400)

	// 2026-10-16 20:30 UTC is 16:30 in New York, same calendar day.
	got := TradingDate(time.Date(2026, 10, 16, 20, 30, 0, 0, time.UTC).Unix(), ny)
	want := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("TradingDate = %v, want %v", got, want)
	}

	// 2026-10-17 02:00 UTC is still 2026-10-16 in New York.
	got = TradingDate(time.Date(2026, 10, 17, 2, 0, 0, 0, time.UTC).Unix(), ny)
	if !got.Equal(want) {
		t.Errorf("TradingDate late evening = %v, want %v", got, want)
	}

	if got.Location() != time.UTC {
		t.Errorf("TradingDate location = %v, want UTC", got.Location())
	}
}

func TestExchangeLocationFallback(t *testing.T) {
	loc := ExchangeLocation("Not/AZone", 3600)
	ts := time.Date(2026, 1, 1, 23, 30, 0, 0, time.UTC).Unix()
	if d := TradingDate(ts, loc); d.Day() != 2 {
		t.Errorf("fixed-zone fallback gave day %d, want 2", d.Day())
	}

	if loc := ExchangeLocation("", 0); loc == nil {
		t.Fatal("ExchangeLocation(\"\", 0) returned nil")
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	if got := FormatDate(d); got != "2026-03-05" {
		t.Errorf("FormatDate = %q, want 2026-03-05", got)
	}
}

func TestIsMarketOpenAt(t *testing.T) {
	// Wednesday at 10:00 AM ET, should be open
	weekday := time.Date(2026, 2, 18, 10, 0, 0, 0, NewYork)
	if !IsMarketOpenAt(weekday) {
		t.Error("Expected market to be open on Wednesday 10:00 AM")
	}

	saturday := time.Date(2026, 2, 21, 10, 0, 0, 0, NewYork)
	if IsMarketOpenAt(saturday) {
		t.Error("Expected market to be closed on Saturday")
	}

	early := time.Date(2026, 2, 18, 9, 0, 0, 0, NewYork)
	if IsMarketOpenAt(early) {
		t.Error("Expected market to be closed at 9:00 AM")
	}

	goodFriday := time.Date(2026, 4, 3, 11, 0, 0, 0, NewYork)
	if IsMarketOpenAt(goodFriday) {
		t.Error("Expected market to be closed on Good Friday")
	}
}

func TestMarketStatusAt(t *testing.T) {
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2026, 2, 21, 12, 0, 0, 0, NewYork), "CLOSED (Weekend)"},
		{time.Date(2026, 12, 25, 12, 0, 0, 0, NewYork), "CLOSED (Christmas Day)"},
		{time.Date(2026, 2, 18, 3, 0, 0, 0, NewYork), "CLOSED"},
		{time.Date(2026, 2, 18, 8, 0, 0, 0, NewYork), "PRE-MARKET"},
		{time.Date(2026, 2, 18, 12, 0, 0, 0, NewYork), "OPEN"},
		{time.Date(2026, 2, 18, 17, 0, 0, 0, NewYork), "AFTER-HOURS"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := MarketStatusAt(tt.at); got != tt.want {
				t.Errorf("MarketStatusAt(%v) = %q, want %q", tt.at, got, tt.want)
			}
		})
	}
}
