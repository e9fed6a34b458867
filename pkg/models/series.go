package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// PriceBar is one daily OHLCV row.
// Date is the exchange-local trading day expressed as midnight UTC.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Series is an ordered run of bars for one ticker.
// Bars are strictly ascending by Date with no duplicate dates.
type Series struct {
	Ticker Ticker     `json:"ticker"`
	Range  Range      `json:"range"`
	Bars   []PriceBar `json:"bars"`
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.Bars) }

// Closes extracts the close column.
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// First returns the earliest bar and false if the series is empty.
func (s Series) First() (PriceBar, bool) {
	if len(s.Bars) == 0 {
		return PriceBar{}, false
	}
	return s.Bars[0], true
}

// Last returns the latest bar and false if the series is empty.
func (s Series) Last() (PriceBar, bool) {
	if len(s.Bars) == 0 {
		return PriceBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Range selects how much history to request.
type Range string

const (
	Range1Month  Range = "1mo"
	Range3Months Range = "3mo"
	Range6Months Range = "6mo"
	Range1Year   Range = "1y"
	Range2Years  Range = "2y"
	Range5Years  Range = "5y"
)

// DefaultRange is used when no range is given.
const DefaultRange = Range1Year

// Ranges lists every supported range, shortest first.
var Ranges = []Range{Range1Month, Range3Months, Range6Months, Range1Year, Range2Years, Range5Years}

var rangeLabels = map[Range]string{
	Range1Month:  "1 Month",
	Range3Months: "3 Months",
	Range6Months: "6 Months",
	Range1Year:   "1 Year",
	Range2Years:  "2 Years",
	Range5Years:  "5 Years",
}

// Label returns the human label, e.g. "6 Months".
func (r Range) Label() string {
	if l, ok := rangeLabels[r]; ok {
		return l
	}
	return string(r)
}

// Valid reports whether r is one of the supported ranges.
func (r Range) Valid() bool {
	_, ok := rangeLabels[r]
	return ok
}

// ErrInvalidRange reports a range outside the supported set.
var ErrInvalidRange = errors.New("unsupported range")

// ParseRange accepts the provider codes ("6mo") and the labels ("6 Months"),
// case-insensitively. An empty string yields DefaultRange.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultRange, nil
	}
	for _, r := range Ranges {
		if strings.EqualFold(s, string(r)) || strings.EqualFold(s, r.Label()) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w %q (want one of 1mo, 3mo, 6mo, 1y, 2y, 5y)", ErrInvalidRange, s)
}

// ChartType selects how the price series is drawn.
type ChartType string

const (
	ChartLine        ChartType = "line"
	ChartCandlestick ChartType = "candlestick"
)

// ParseChartType accepts "line" and "candlestick" (also "Line Chart",
// "Candlestick Chart"). An empty string yields ChartLine.
func ParseChartType(s string) (ChartType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, " chart")
	switch s {
	case "", "line":
		return ChartLine, nil
	case "candlestick", "candle":
		return ChartCandlestick, nil
	}
	return "", fmt.Errorf("unsupported chart type %q (want line or candlestick)", s)
}
