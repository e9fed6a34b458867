// Package normalize turns a raw provider response into a QuoteSnapshot and
// a strictly ascending, duplicate-free Series.
//
// Metadata is resolved through ordered alternate keys because the provider's
// field names differ between asset classes. Anything that cannot be resolved
// to a usable value becomes unknown; nothing defaults to zero.
//
// Row problems are not fatal. Rows with a null close are dropped and counted,
// other malformed rows are dropped and recorded in the Report. Normalization
// only fails when no rows survive.
package normalize

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/seenimoa/stockdash/internal/datasource"
	"github.com/seenimoa/stockdash/pkg/models"
	"github.com/seenimoa/stockdash/pkg/utils"
)

// Kind classifies a normalization failure.
type Kind string

const (
	BadRow      Kind = "BadRow"
	NoValidRows Kind = "NoValidRows"
)

// ErrBadRow matches any RowError.
var ErrBadRow = errors.New("bad row")

// ErrNoValidRows matches a NormalizeError with Kind NoValidRows.
var ErrNoValidRows = errors.New("no valid rows")

// RowError describes one dropped row. Row is the index in the raw input.
type RowError struct {
	Row       int    `json:"row"`
	Timestamp int64  `json:"timestamp"`
	Reason    string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s at row %d: %s", BadRow, e.Row, e.Reason)
}

// Is lets errors.Is(rowErr, ErrBadRow) succeed.
func (e RowError) Is(target error) bool { return target == ErrBadRow }

// Report carries row-level diagnostics for one normalization.
type Report struct {
	InputRows        int        `json:"input_rows"`
	DroppedNullClose int        `json:"dropped_null_close"`
	BadRows          []RowError `json:"bad_rows,omitempty"`
	Duplicates       int        `json:"duplicates"`
}

// Dropped is the total number of input rows that did not make it into the series.
func (r Report) Dropped() int {
	return r.DroppedNullClose + len(r.BadRows) + r.Duplicates
}

// NormalizeError is returned when normalization as a whole fails.
type NormalizeError struct {
	Kind   Kind
	Ticker models.Ticker
	Report Report
}

func (e *NormalizeError) Error() string {
	return fmt.Sprintf("normalize %s: %s (%d input rows, %d null close, %d bad)",
		e.Ticker, e.Kind, e.Report.InputRows, e.Report.DroppedNullClose, len(e.Report.BadRows))
}

// Is lets errors.Is match the package sentinels.
func (e *NormalizeError) Is(target error) bool {
	switch target {
	case ErrNoValidRows:
		return e.Kind == NoValidRows
	case ErrBadRow:
		return e.Kind == BadRow
	}
	return false
}

// Normalize converts raw into a snapshot and series. The series Range is
// left empty; the caller knows what was requested. Pure; no I/O.
func Normalize(raw *datasource.RawQuote) (models.QuoteSnapshot, models.Series, Report, error) {
	if raw == nil {
		raw = &datasource.RawQuote{}
	}
	ticker := models.Ticker(strings.ToUpper(strings.TrimSpace(raw.Symbol)))

	snap := Snapshot(ticker, raw.Metadata)

	loc := utils.ExchangeLocation(raw.Timezone, raw.GMTOffset)
	bars, report := Bars(raw.Bars, loc)
	series := models.Series{Ticker: ticker, Bars: bars}

	if len(bars) == 0 {
		return snap, series, report, &NormalizeError{Kind: NoValidRows, Ticker: ticker, Report: report}
	}
	return snap, series, report, nil
}

// Sort orders bars ascending by date and removes duplicate dates, keeping
// the first occurrence. It returns the result and the number removed.
// Applying Sort to its own output is a no-op.
func Sort(bars []models.PriceBar) ([]models.PriceBar, int) {
	sorted := make([]models.PriceBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	out := sorted[:0]
	dups := 0
	for _, b := range sorted {
		if len(out) > 0 && out[len(out)-1].Date.Equal(b.Date) {
			dups++
			continue
		}
		out = append(out, b)
	}
	return out, dups
}
