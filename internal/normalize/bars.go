package normalize

import (
	"fmt"
	"math"
	"time"

	"github.com/seenimoa/stockdash/internal/datasource"
	"github.com/seenimoa/stockdash/pkg/models"
	"github.com/seenimoa/stockdash/pkg/utils"
)

// envelopeTolerance absorbs float32 artefacts in provider prices, where
// low can exceed close in the last few bits.
const envelopeTolerance = 1e-6

// Bars validates, dates, sorts and de-duplicates raw rows.
func Bars(raw []datasource.RawBar, loc *time.Location) ([]models.PriceBar, Report) {
	report := Report{InputRows: len(raw)}
	bars := make([]models.PriceBar, 0, len(raw))

	for i, r := range raw {
		if r.Close == nil {
			report.DroppedNullClose++
			continue
		}
		bar, reason := convertBar(r, loc)
		if reason != "" {
			report.BadRows = append(report.BadRows, RowError{Row: i, Timestamp: r.Timestamp, Reason: reason})
			continue
		}
		bars = append(bars, bar)
	}

	bars, report.Duplicates = Sort(bars)
	return bars, report
}

// convertBar returns a non-empty reason when the row must be dropped.
func convertBar(r datasource.RawBar, loc *time.Location) (models.PriceBar, string) {
	prices := []struct {
		name string
		v    *float64
	}{
		{"open", r.Open},
		{"high", r.High},
		{"low", r.Low},
		{"close", r.Close},
	}
	for _, p := range prices {
		if p.v == nil {
			return models.PriceBar{}, "missing " + p.name
		}
		if math.IsNaN(*p.v) || math.IsInf(*p.v, 0) {
			return models.PriceBar{}, "non-finite " + p.name
		}
		if *p.v < 0 {
			return models.PriceBar{}, fmt.Sprintf("negative %s %g", p.name, *p.v)
		}
	}

	if r.Volume == nil {
		return models.PriceBar{}, "missing volume"
	}
	vol := *r.Volume
	if math.IsNaN(vol) || math.IsInf(vol, 0) {
		return models.PriceBar{}, "non-finite volume"
	}
	if vol < 0 {
		return models.PriceBar{}, fmt.Sprintf("negative volume %g", vol)
	}

	open, high, low, cl := *r.Open, *r.High, *r.Low, *r.Close
	top := math.Max(open, cl)
	bottom := math.Min(open, cl)
	if high < top-tolerance(top) {
		return models.PriceBar{}, fmt.Sprintf("high %g below max(open, close) %g", high, top)
	}
	if low > bottom+tolerance(bottom) {
		return models.PriceBar{}, fmt.Sprintf("low %g above min(open, close) %g", low, bottom)
	}

	return models.PriceBar{
		Date:   utils.TradingDate(r.Timestamp, loc),
		Open:   open,
		High:   math.Max(high, top),
		Low:    math.Min(low, bottom),
		Close:  cl,
		Volume: int64(math.Round(vol)),
	}, ""
}

func tolerance(v float64) float64 {
	return math.Max(math.Abs(v), 1) * envelopeTolerance
}
