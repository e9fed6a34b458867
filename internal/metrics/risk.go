package metrics

import (
	"math"

	"github.com/guregu/null/v6"

	"github.com/seenimoa/stockdash/pkg/models"
)

// TradingDaysPerYear annualizes daily statistics.
const TradingDaysPerYear = 252

// DefaultRiskFreeRate is the annual risk-free rate used for the Sharpe ratio.
const DefaultRiskFreeRate = 0.02

// TrendWindow is the moving-average window used by Trend.
const TrendWindow = 20

// trendBand is the MA change, in percent, beyond which a trend is called.
const trendBand = 2.0

// DailyReturns computes simple close-to-close returns, skipping any step
// whose previous close is zero or whose return is not finite.
func DailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		r := (closes[i] - closes[i-1]) / closes[i-1]
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		returns = append(returns, r)
	}
	return returns
}

// Volatility is the annualized sample standard deviation of daily returns,
// in percent. Unknown with fewer than two returns.
func Volatility(returns []float64) null.Float {
	if len(returns) < 2 {
		return null.Float{}
	}
	sd := sampleStdDev(returns, mean(returns))
	return finite(sd * math.Sqrt(TradingDaysPerYear) * 100)
}

// SharpeRatio is the annualized mean excess return over the return
// standard deviation. Unknown with fewer than two returns or zero deviation.
func SharpeRatio(returns []float64, riskFreeRate float64) null.Float {
	if len(returns) < 2 {
		return null.Float{}
	}
	sd := sampleStdDev(returns, mean(returns))
	if sd == 0 || math.IsInf(sd, 0) || math.IsNaN(sd) {
		return null.Float{}
	}
	dailyRf := riskFreeRate / TradingDaysPerYear
	excess := 0.0
	for _, r := range returns {
		excess += r - dailyRf
	}
	excess /= float64(len(returns))
	return finite(excess / sd * math.Sqrt(TradingDaysPerYear))
}

// MaxDrawdown is the largest peak-to-trough decline in percent, reported as
// a value <= 0. Unknown for an empty series or a non-positive peak.
func MaxDrawdown(closes []float64) null.Float {
	if len(closes) == 0 {
		return null.Float{}
	}
	peak := closes[0]
	worst := 0.0
	for _, c := range closes {
		if c > peak {
			peak = c
		}
		if peak <= 0 {
			return null.Float{}
		}
		if dd := (c - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return finite(worst * 100)
}

// Trend compares the latest TrendWindow-bar SMA with its value half a window
// earlier; a change beyond ±2% is a trend.
func Trend(closes []float64) models.Trend {
	if len(closes) < TrendWindow {
		return models.TrendInsufficient
	}
	ma := SMA(closes, TrendWindow)
	current := ma[len(ma)-1]
	previous := ma[len(ma)-TrendWindow/2]
	if !current.Valid || !previous.Valid || previous.Float64 == 0 {
		return models.TrendInsufficient
	}

	change := (current.Float64 - previous.Float64) / previous.Float64 * 100
	switch {
	case math.IsNaN(change) || math.IsInf(change, 0):
		return models.TrendInsufficient
	case change > trendBand:
		return models.TrendUpward
	case change < -trendBand:
		return models.TrendDownward
	default:
		return models.TrendSideways
	}
}
