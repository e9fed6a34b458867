// Package export writes an analysis as a two-block CSV document: a
// Metric/Value metadata block followed by the raw daily price series.
//
// Raw numbers use the shortest decimal representation with a period
// separator and no grouping, so the series block can be re-parsed by
// machines. Human-formatted strings appear only in the metadata block.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"github.com/seenimoa/stockdash/pkg/models"
	"github.com/seenimoa/stockdash/pkg/utils"
)

// Section labels. They start with '#' so csv.Reader with Comment '#' skips them.
const (
	MetadataLabel = "# Company Information"
	SeriesLabel   = "# Historical Price Data"
)

// SeriesHeader is the fixed column order of the price block.
var SeriesHeader = []string{"date", "open", "high", "low", "close", "volume"}

// Table lays out the export rows. The only input-independent value is
// generatedAt, so equal inputs give equal tables.
func Table(snap models.QuoteSnapshot, series models.Series, derived models.DerivedMetrics, generatedAt time.Time) [][]string {
	rows := make([][]string, 0, series.Len()+32)

	meta := [][2]string{
		{"Ticker", string(snap.Symbol)},
		{"Company Name", text(snap.LongName)},
		{"Generated At", generatedAt.UTC().Format(time.RFC3339)},
		{"Period", periodText(series.Range)},
		{"Sector", text(snap.Sector)},
		{"Industry", text(snap.Industry)},
		{"Currency", text(snap.Currency)},
		{"Current Price", number(snap.CurrentPrice)},
		{"Market Cap", derived.MarketCapText},
		{"P/E Ratio", derived.PERatioText},
		{"Dividend Yield", derived.DividendYieldText},
		{"52 Week High", number(snap.FiftyTwoWeekHigh)},
		{"52 Week Low", number(snap.FiftyTwoWeekLow)},
		{"Average Volume", integer(snap.AverageVolume)},
		{"Beta", number(snap.Beta)},
		{"Period Return", derived.PeriodReturnText},
		{"Volatility (Annualized)", derived.VolatilityText},
		{"Sharpe Ratio", derived.SharpeText},
		{"Max Drawdown", derived.DrawdownText},
		{"Trend", trendText(derived.Trend)},
		{"Trading Days", strconv.Itoa(series.Len())},
	}

	rows = append(rows, []string{MetadataLabel}, []string{"Metric", "Value"})
	for _, kv := range meta {
		rows = append(rows, []string{kv[0], kv[1]})
	}

	rows = append(rows, []string{}, []string{SeriesLabel}, append([]string(nil), SeriesHeader...))
	for _, b := range series.Bars {
		rows = append(rows, []string{
			utils.FormatDate(b.Date),
			decimal.NewFromFloat(b.Open).String(),
			decimal.NewFromFloat(b.High).String(),
			decimal.NewFromFloat(b.Low).String(),
			decimal.NewFromFloat(b.Close).String(),
			decimal.NewFromInt(b.Volume).String(),
		})
	}
	return rows
}

// Write encodes rows as CSV with LF line endings.
func Write(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// Filename returns the conventional export name, e.g. "AAPL_analysis_20261018.csv".
func Filename(ticker models.Ticker, generatedAt time.Time) string {
	return fmt.Sprintf("%s_analysis_%s.csv", ticker, generatedAt.UTC().Format("20060102"))
}

// WriteFile writes the export into dir under Filename and returns the path.
func WriteFile(dir string, snap models.QuoteSnapshot, series models.Series, derived models.DerivedMetrics, generatedAt time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, Filename(snap.Symbol, generatedAt))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}

	if err := Write(f, Table(snap, series, derived, generatedAt)); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}

func text(s null.String) string {
	if !s.Valid || s.String == "" {
		return models.UnknownText
	}
	return s.String
}

func number(f null.Float) string {
	if !f.Valid {
		return models.UnknownText
	}
	return decimal.NewFromFloat(f.Float64).String()
}

func integer(i null.Int) string {
	if !i.Valid {
		return models.UnknownText
	}
	return strconv.FormatInt(i.Int64, 10)
}

func periodText(r models.Range) string {
	if r == "" {
		return models.UnknownText
	}
	return r.Label()
}

func trendText(t models.Trend) string {
	if t == "" {
		return models.UnknownText
	}
	return string(t)
}
