// Package models defines the core data structures used throughout stockdash.
//
// Every value that the data provider may omit is held in a guregu/null type.
// An invalid (null) value means "the provider did not say"; it is never
// conflated with zero or an empty string.
package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// UnknownText is the placeholder rendered for any value the provider did not supply.
const UnknownText = "unknown"

// Ticker is a validated instrument symbol, e.g. "AAPL" or "BRK-B".
// Obtain one through utils.ValidateTicker; it is immutable afterwards.
type Ticker string

// String returns the ticker symbol.
func (t Ticker) String() string { return string(t) }

// QuoteSnapshot is the point-in-time metadata of one instrument.
type QuoteSnapshot struct {
	Symbol           Ticker      `json:"symbol"`
	LongName         null.String `json:"long_name"`
	Sector           null.String `json:"sector"`
	Industry         null.String `json:"industry"`
	Currency         null.String `json:"currency"`
	CurrentPrice     null.Float  `json:"current_price"`
	MarketCap        null.Float  `json:"market_cap"`
	PERatio          null.Float  `json:"pe_ratio"`
	DividendYield    null.Float  `json:"dividend_yield"` // fraction, e.g. 0.021
	FiftyTwoWeekHigh null.Float  `json:"fifty_two_week_high"`
	FiftyTwoWeekLow  null.Float  `json:"fifty_two_week_low"`
	AverageVolume    null.Int    `json:"average_volume"`
	Beta             null.Float  `json:"beta"`
	FetchedAt        time.Time   `json:"fetched_at"`
}

// DisplayName returns the long name when known, the symbol otherwise.
func (q QuoteSnapshot) DisplayName() string {
	if q.LongName.Valid && q.LongName.String != "" {
		return q.LongName.String
	}
	return string(q.Symbol)
}
