// Package metrics derives display values from a normalized snapshot and
// series: period return, compact market cap, dividend yield, P/E, technical
// indicators and risk statistics.
//
// Derived values are never authoritative. Whenever an input is unknown or
// too short, the output is unknown and renders as models.UnknownText.
package metrics

import (
	"github.com/guregu/null/v6"

	"github.com/seenimoa/stockdash/pkg/models"
	"github.com/seenimoa/stockdash/pkg/utils"
)

// Options tunes Derive.
type Options struct {
	RiskFreeRate float64 // annual, e.g. 0.02
}

// DefaultOptions returns the options Derive uses.
func DefaultOptions() Options {
	return Options{RiskFreeRate: DefaultRiskFreeRate}
}

// Derive computes display metrics with DefaultOptions.
func Derive(snap models.QuoteSnapshot, series models.Series) models.DerivedMetrics {
	return DeriveWith(snap, series, DefaultOptions())
}

// DeriveWith computes display metrics. Pure.
func DeriveWith(snap models.QuoteSnapshot, series models.Series, opts Options) models.DerivedMetrics {
	closes := series.Closes()
	returns := DailyReturns(closes)

	ret := PeriodReturn(series)
	div := DividendYieldPct(snap.DividendYield)
	vol := Volatility(returns)
	sharpe := SharpeRatio(returns, opts.RiskFreeRate)
	dd := MaxDrawdown(closes)

	return models.DerivedMetrics{
		PeriodReturn:      ret,
		PeriodReturnText:  utils.FormatPctOrUnknown(ret),
		MarketCapText:     utils.FormatLargeNumber(snap.MarketCap),
		DividendYieldPct:  div,
		DividendYieldText: utils.FormatPercent(div),
		PERatioText:       utils.FormatFixed2(snap.PERatio),

		Volatility:     vol,
		SharpeRatio:    sharpe,
		MaxDrawdown:    dd,
		VolatilityText: utils.FormatPercent(vol),
		SharpeText:     utils.FormatFixed2(sharpe),
		DrawdownText:   utils.FormatPercent(dd),
		Trend:          Trend(closes),
	}
}

// PeriodReturn is the percent change from the first to the last close.
// Unknown with fewer than two bars, a zero first close or a result too
// large to represent.
func PeriodReturn(series models.Series) null.Float {
	if series.Len() < 2 {
		return null.Float{}
	}
	first, _ := series.First()
	last, _ := series.Last()
	if first.Close == 0 {
		return null.Float{}
	}
	return finite((last.Close - first.Close) / first.Close * 100)
}

// DividendYieldPct converts the provider's fractional yield to percent.
// An explicit zero stays a known zero.
func DividendYieldPct(fraction null.Float) null.Float {
	if !fraction.Valid {
		return null.Float{}
	}
	return finite(fraction.Float64 * 100)
}
