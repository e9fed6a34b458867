// Package datasource fetches raw market data from Yahoo Finance: quote
// metadata with daily price history, index summaries and company headlines.
//
// Nothing here interprets the provider's schema beyond splitting bars from
// metadata. Metadata stays an open key/value map until the normalize package
// resolves it.
package datasource

import (
	"context"
	"errors"
	"fmt"

	"github.com/seenimoa/stockdash/pkg/models"
)

// Source fetches the raw quote for one ticker over a range.
// Implementations make a single attempt and must be safe for concurrent use.
type Source interface {
	Fetch(ctx context.Context, ticker models.Ticker, rng models.Range) (*RawQuote, error)
}

// RawBar is one provider row. Any field may be nil when the provider sent null.
type RawBar struct {
	Timestamp int64
	Open      *float64
	High      *float64
	Low       *float64
	Close     *float64
	Volume    *float64
}

// RawQuote is the untyped provider response for one ticker.
type RawQuote struct {
	Symbol    string
	Timezone  string // IANA exchange timezone, e.g. "America/New_York"
	GMTOffset int    // seconds east of UTC, used when Timezone is unknown
	Metadata  map[string]any
	Bars      []RawBar
}

// FetchKind classifies a fetch failure so callers can pick a remedy.
type FetchKind string

const (
	NotFound     FetchKind = "NotFound"
	NetworkError FetchKind = "NetworkError"
	RateLimited  FetchKind = "RateLimited"
	EmptyResult  FetchKind = "EmptyResult"
)

// --- Sentinel errors ---

// ErrTickerNotFound is returned when a ticker cannot be resolved.
var ErrTickerNotFound = errors.New("ticker not found")

// ErrNetwork is returned on transport failures, timeouts and bad responses.
var ErrNetwork = errors.New("network error")

// ErrRateLimited is returned when the provider throttles the request.
var ErrRateLimited = errors.New("rate limited by data source")

// ErrEmptyResult is returned when the symbol exists but has no bars in range.
var ErrEmptyResult = errors.New("no price data in range")

// FetchError is the only error type returned by Source implementations.
type FetchError struct {
	Kind   FetchKind
	Ticker models.Ticker
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case NotFound:
		return fmt.Sprintf("fetch %s: ticker not found", e.Ticker)
	case RateLimited:
		return fmt.Sprintf("fetch %s: rate limited by provider", e.Ticker)
	case EmptyResult:
		return fmt.Sprintf("fetch %s: no price data in the requested range", e.Ticker)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: network error: %v", e.Ticker, e.Err)
	}
	return fmt.Sprintf("fetch %s: network error", e.Ticker)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is match the package sentinels.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrTickerNotFound:
		return e.Kind == NotFound
	case ErrNetwork:
		return e.Kind == NetworkError
	case ErrRateLimited:
		return e.Kind == RateLimited
	case ErrEmptyResult:
		return e.Kind == EmptyResult
	}
	return false
}

func fetchErr(kind FetchKind, ticker models.Ticker, err error) *FetchError {
	return &FetchError{Kind: kind, Ticker: ticker, Err: err}
}
