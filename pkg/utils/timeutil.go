package utils

import (
	"time"
	_ "time/tzdata"
)

// DateLayout is the calendar-date layout used in exports and the API.
const DateLayout = "2006-01-02"

// NewYork is the US Eastern location used for NYSE/NASDAQ session times.
var NewYork *time.Location

func init() {
	var err error
	NewYork, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		NewYork = time.FixedZone("EST", -5*60*60)
	}
}

// ExchangeLocation resolves the provider's exchange timezone. When the tz
// database does not know the name, a fixed zone at gmtOffset seconds is used.
func ExchangeLocation(name string, gmtOffset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if name == "" {
		name = "UTC"
	}
	return time.FixedZone(name, gmtOffset)
}

// TradingDate converts a unix timestamp to the exchange-local calendar day,
// expressed as midnight UTC so dates compare equal across exchanges.
func TradingDate(unix int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := time.Unix(unix, 0).In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate formats a calendar date as "2006-01-02".
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// MarketOpenTime returns the US regular session open (9:30 AM ET) for a given date.
func MarketOpenTime(date time.Time) time.Time {
	d := date.In(NewYork)
	return time.Date(d.Year(), d.Month(), d.Day(), 9, 30, 0, 0, NewYork)
}

// MarketCloseTime returns the US regular session close (4:00 PM ET) for a given date.
func MarketCloseTime(date time.Time) time.Time {
	d := date.In(NewYork)
	return time.Date(d.Year(), d.Month(), d.Day(), 16, 0, 0, 0, NewYork)
}

// PreMarketStart returns the pre-market session start time (4:00 AM ET).
func PreMarketStart(date time.Time) time.Time {
	d := date.In(NewYork)
	return time.Date(d.Year(), d.Month(), d.Day(), 4, 0, 0, 0, NewYork)
}

// IsMarketOpenAt checks if the US market would be open at the given time.
func IsMarketOpenAt(t time.Time) bool {
	t = t.In(NewYork)
	if !IsTradingDay(t) {
		return false
	}
	return !t.Before(MarketOpenTime(t)) && t.Before(MarketCloseTime(t))
}

// IsTradingDay checks if the given date is a trading day (not weekend, not holiday).
func IsTradingDay(t time.Time) bool {
	t = t.In(NewYork)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !IsTradingHoliday(t)
}

// IsTradingHoliday checks if the given date is an NYSE holiday.
// This list should be updated annually.
func IsTradingHoliday(t time.Time) bool {
	_, ok := nyseHolidays2026[t.In(NewYork).Format(DateLayout)]
	return ok
}

// NYSE holidays for 2026 (update annually).
var nyseHolidays2026 = map[string]string{
	"2026-01-01": "New Year's Day",
	"2026-01-19": "Martin Luther King Jr. Day",
	"2026-02-16": "Washington's Birthday",
	"2026-04-03": "Good Friday",
	"2026-05-25": "Memorial Day",
	"2026-06-19": "Juneteenth",
	"2026-07-03": "Independence Day (observed)",
	"2026-09-07": "Labor Day",
	"2026-11-26": "Thanksgiving Day",
	"2026-12-25": "Christmas Day",
}

// MarketStatusAt returns the US market session label at t.
func MarketStatusAt(t time.Time) string {
	now := t.In(NewYork)

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}
	if holiday, ok := nyseHolidays2026[now.Format(DateLayout)]; ok {
		return "CLOSED (" + holiday + ")"
	}

	switch {
	case now.Before(PreMarketStart(now)):
		return "CLOSED"
	case now.Before(MarketOpenTime(now)):
		return "PRE-MARKET"
	case now.Before(MarketCloseTime(now)):
		return "OPEN"
	default:
		return "AFTER-HOURS"
	}
}

// MarketStatus returns the current US market session label.
func MarketStatus() string {
	return MarketStatusAt(time.Now())
}
