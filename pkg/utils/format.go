// Package utils provides common utility functions for stockdash.
package utils

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/guregu/null/v6"

	"github.com/seenimoa/stockdash/pkg/models"
)

var largeUnits = []struct {
	scale  float64
	suffix string
}{
	{1e12, "T"},
	{1e9, "B"},
	{1e6, "M"},
}

// FormatLargeNumber renders a magnitude in compact notation.
// e.g., 1.23e12 → "1.23T", 456.7e6 → "456.7M", 999999 → "999,999".
// Unknown renders as models.UnknownText.
func FormatLargeNumber(v null.Float) string {
	if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
		return models.UnknownText
	}
	n := v.Float64
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}

	for i, u := range largeUnits {
		if n < u.scale {
			continue
		}
		scaled := round2(n / u.scale)
		// 999.995M rounds to 1000M; show it as 1B instead.
		if scaled >= 1000 && i > 0 {
			prev := largeUnits[i-1]
			return sign + formatWithDecimals(round2(n/prev.scale)) + prev.suffix
		}
		return sign + formatWithDecimals(scaled) + u.suffix
	}
	if math.Round(n) >= 1e6 {
		return sign + "1M"
	}
	return sign + humanize.Comma(int64(math.Round(n)))
}

// FormatPct formats a percentage value with sign and suffix.
// e.g., 2.45 → "+2.45%", -1.23 → "-1.23%"
func FormatPct(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatPctOrUnknown is FormatPct for optional values.
func FormatPctOrUnknown(pct null.Float) string {
	if !pct.Valid || math.IsNaN(pct.Float64) || math.IsInf(pct.Float64, 0) {
		return models.UnknownText
	}
	return FormatPct(pct.Float64)
}

// FormatPercent renders a percentage without a forced sign, e.g. "2.10%".
func FormatPercent(pct null.Float) string {
	if !pct.Valid || math.IsNaN(pct.Float64) || math.IsInf(pct.Float64, 0) {
		return models.UnknownText
	}
	return fmt.Sprintf("%.2f%%", pct.Float64)
}

// FormatFixed2 renders a two-decimal number or models.UnknownText.
func FormatFixed2(v null.Float) string {
	if !v.Valid {
		return models.UnknownText
	}
	return fmt.Sprintf("%.2f", v.Float64)
}

// FormatPrice renders a price with thousands separators and its currency code.
// e.g., (1234.5, "USD") → "1,234.50 USD"
func FormatPrice(v null.Float, currency null.String) string {
	if !v.Valid {
		return models.UnknownText
	}
	s := humanize.FormatFloat("#,###.##", v.Float64)
	if currency.Valid && currency.String != "" {
		return s + " " + currency.String
	}
	return s
}

// FormatVolume renders a share count in compact notation.
// e.g., 1500000 → "1.5M", 25000 → "25,000"
func FormatVolume(volume null.Int) string {
	if !volume.Valid {
		return models.UnknownText
	}
	return FormatLargeNumber(null.FloatFrom(float64(volume.Int64)))
}

func round2(n float64) float64 {
	return math.Round(n*100) / 100
}

// formatWithDecimals formats a number with up to 2 decimal places,
// removing trailing zeros.
func formatWithDecimals(n float64) string {
	s := fmt.Sprintf("%.2f", n)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
