package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/guregu/null/v6"

	"github.com/seenimoa/stockdash/pkg/models"
)

// Alternate provider keys per snapshot field, most specific first.
var (
	longNameKeys      = []string{"longName", "shortName", "displayName", "name"}
	sectorKeys        = []string{"sector", "sectorDisp", "category"}
	industryKeys      = []string{"industry", "industryDisp"}
	currencyKeys      = []string{"currency", "financialCurrency"}
	currentPriceKeys  = []string{"currentPrice", "regularMarketPrice", "navPrice"}
	marketCapKeys     = []string{"marketCap", "marketCapitalization", "totalAssets"}
	peRatioKeys       = []string{"trailingPE", "peRatio", "trailingPe"}
	dividendYieldKeys = []string{"dividendYield", "yield", "trailingAnnualDividendYield"}
	high52Keys        = []string{"fiftyTwoWeekHigh", "52WeekHigh", "yearHigh"}
	low52Keys         = []string{"fiftyTwoWeekLow", "52WeekLow", "yearLow"}
	avgVolumeKeys     = []string{"averageVolume", "averageDailyVolume3Month", "averageVolume10days"}
	betaKeys          = []string{"beta", "beta3Year"}
)

// Snapshot resolves metadata into a QuoteSnapshot. FetchedAt is left zero.
func Snapshot(ticker models.Ticker, md map[string]any) models.QuoteSnapshot {
	l := newLookup(md)
	return models.QuoteSnapshot{
		Symbol:           ticker,
		LongName:         l.str(longNameKeys...),
		Sector:           l.str(sectorKeys...),
		Industry:         l.str(industryKeys...),
		Currency:         l.str(currencyKeys...),
		CurrentPrice:     l.num(currentPriceKeys...),
		MarketCap:        l.num(marketCapKeys...),
		PERatio:          l.num(peRatioKeys...),
		DividendYield:    l.num(dividendYieldKeys...),
		FiftyTwoWeekHigh: l.num(high52Keys...),
		FiftyTwoWeekLow:  l.num(low52Keys...),
		AverageVolume:    l.integer(avgVolumeKeys...),
		Beta:             l.num(betaKeys...),
	}
}

// lookup finds keys exactly first, then case-insensitively.
type lookup struct {
	exact  map[string]any
	folded map[string]any
}

func newLookup(md map[string]any) lookup {
	folded := make(map[string]any, len(md))
	for k, v := range md {
		lk := strings.ToLower(k)
		// Exact-case keys win over other spellings of the same key.
		if _, ok := folded[lk]; ok && k != lk {
			continue
		}
		folded[lk] = v
	}
	return lookup{exact: md, folded: folded}
}

func (l lookup) get(key string) (any, bool) {
	if v, ok := l.exact[key]; ok && v != nil {
		return v, true
	}
	v, ok := l.folded[strings.ToLower(key)]
	return v, ok && v != nil
}

// num returns the first key holding a finite number.
func (l lookup) num(keys ...string) null.Float {
	for _, k := range keys {
		v, ok := l.get(k)
		if !ok {
			continue
		}
		if f, ok := toFloat(v); ok {
			return null.FloatFrom(f)
		}
	}
	return null.Float{}
}

func (l lookup) integer(keys ...string) null.Int {
	f := l.num(keys...)
	if !f.Valid {
		return null.Int{}
	}
	return null.IntFrom(int64(math.Round(f.Float64)))
}

// str returns the first key holding a non-blank string.
func (l lookup) str(keys ...string) null.String {
	for _, k := range keys {
		v, ok := l.get(k)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return null.StringFrom(strings.TrimSpace(s))
		}
	}
	return null.String{}
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
