package metrics

import (
	"math"

	"github.com/guregu/null/v6"

	"github.com/seenimoa/stockdash/pkg/models"
)

// Indicator periods.
const (
	SMAShort        = 20
	SMAMedium       = 50
	SMALong         = 200
	EMAFast         = 12
	EMASlow         = 26
	MACDSignal      = 9
	RSIPeriod       = 14
	BollingerPeriod = 20
	BollingerWidth  = 2.0
)

// Indicators computes the standard indicator set over the series' closes.
// Every output slice has one entry per bar.
func Indicators(series models.Series) models.Indicators {
	closes := series.Closes()
	macd, signal := MACD(closes, EMAFast, EMASlow, MACDSignal)
	upper, _, lower := Bollinger(closes, BollingerPeriod, BollingerWidth)
	return models.Indicators{
		SMA20:          SMA(closes, SMAShort),
		SMA50:          SMA(closes, SMAMedium),
		SMA200:         SMA(closes, SMALong),
		EMA12:          EMA(closes, EMAFast),
		EMA26:          EMA(closes, EMASlow),
		MACD:           macd,
		MACDSignal:     signal,
		RSI14:          RSI(closes, RSIPeriod),
		BollingerUpper: upper,
		BollingerLower: lower,
	}
}

// SMA is the simple moving average. The first period-1 points are unknown.
func SMA(values []float64, period int) []null.Float {
	out := make([]null.Float, len(values))
	if period <= 0 {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = finite(sum / float64(period))
		}
	}
	return out
}

// EMA is the exponential moving average seeded with the SMA of the first
// period values. Points before the seed are unknown.
func EMA(values []float64, period int) []null.Float {
	known := make([]null.Float, len(values))
	for i, v := range values {
		known[i] = null.FloatFrom(v)
	}
	return emaCalc(known, period)
}

// emaCalc skips leading unknowns so it can smooth a derived series such as
// the MACD line.
func emaCalc(data []null.Float, period int) []null.Float {
	n := len(data)
	ema := make([]null.Float, n)
	if period <= 0 {
		return ema
	}

	start := 0
	for start < n && !data[start].Valid {
		start++
	}
	if n-start < period {
		return ema
	}

	k := 2.0 / float64(period+1)
	sum := 0.0
	for i := start; i < start+period; i++ {
		sum += data[i].Float64
	}
	prev := sum / float64(period)
	ema[start+period-1] = finite(prev)

	for i := start + period; i < n; i++ {
		prev = data[i].Float64*k + prev*(1-k)
		ema[i] = finite(prev)
	}
	return ema
}

// MACD returns the MACD line (fast EMA - slow EMA) and its signal EMA.
func MACD(values []float64, fast, slow, signal int) (macd, sig []null.Float) {
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)

	macd = make([]null.Float, len(values))
	for i := range values {
		if fastEMA[i].Valid && slowEMA[i].Valid {
			macd[i] = finite(fastEMA[i].Float64 - slowEMA[i].Float64)
		}
	}
	return macd, emaCalc(macd, signal)
}

// RSI is the Relative Strength Index with Wilder smoothing, 0–100.
// The first period points are unknown.
func RSI(values []float64, period int) []null.Float {
	n := len(values)
	rsi := make([]null.Float, n)
	if period <= 0 || n < period+1 {
		return rsi
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	rsi[period] = finite(rsiValue(avgGain, avgLoss))

	for i := period + 1; i < n; i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		rsi[i] = finite(rsiValue(avgGain, avgLoss))
	}
	return rsi
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	return 100 - 100/(1+avgGain/avgLoss)
}

// Bollinger returns upper, middle and lower bands using the sample standard
// deviation over period closes.
func Bollinger(values []float64, period int, width float64) (upper, middle, lower []null.Float) {
	n := len(values)
	upper = make([]null.Float, n)
	middle = SMA(values, period)
	lower = make([]null.Float, n)
	if period < 2 {
		return upper, middle, lower
	}
	for i := period - 1; i < n; i++ {
		if !middle[i].Valid {
			continue
		}
		mean := middle[i].Float64
		sd := sampleStdDev(values[i-period+1:i+1], mean)
		upper[i] = finite(mean + width*sd)
		lower[i] = finite(mean - width*sd)
	}
	return upper, middle, lower
}

// Latest returns the last known value of an indicator series.
func Latest(vals []null.Float) null.Float {
	for i := len(vals) - 1; i >= 0; i-- {
		if vals[i].Valid {
			return vals[i]
		}
	}
	return null.Float{}
}

// finite wraps v as a known value unless it is NaN or infinite.
func finite(v float64) null.Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

func sampleStdDev(data []float64, m float64) float64 {
	if len(data) < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range data {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(data)-1))
}
