package datasource

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stockdash/pkg/models"
)

// MarketIndex names one index shown in the market summary.
type MarketIndex struct {
	Name   string
	Symbol string
}

// DefaultIndices are the major US indices.
var DefaultIndices = []MarketIndex{
	{Name: "S&P 500", Symbol: "^GSPC"},
	{Name: "Dow Jones", Symbol: "^DJI"},
	{Name: "NASDAQ", Symbol: "^IXIC"},
	{Name: "Russell 2000", Symbol: "^RUT"},
}

// ErrNoIndexData is returned when every index in a summary failed.
var ErrNoIndexData = errors.New("market summary: no index data available")

// MarketSummary returns the DefaultIndices snapshot.
func (y *Yahoo) MarketSummary(ctx context.Context) ([]models.IndexSnapshot, error) {
	return y.MarketSummaryFor(ctx, DefaultIndices)
}

// MarketSummaryFor fetches indices concurrently. Indices that fail are
// logged and skipped; output keeps the input order.
func (y *Yahoo) MarketSummaryFor(ctx context.Context, indices []MarketIndex) ([]models.IndexSnapshot, error) {
	slots := make([]*models.IndexSnapshot, len(indices))

	var g errgroup.Group
	for i, idx := range indices {
		g.Go(func() error {
			snap, err := y.indexSnapshot(ctx, idx)
			if err != nil {
				y.logger.Warn("index unavailable",
					zap.String("index", idx.Name), zap.String("symbol", idx.Symbol), zap.Error(err))
				return nil
			}
			slots[i] = snap
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.IndexSnapshot, 0, len(indices))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoIndexData
	}
	return out, nil
}

// indexSnapshot computes value and change from the last two valid closes.
// With a single close the change is zero.
func (y *Yahoo) indexSnapshot(ctx context.Context, idx MarketIndex) (*models.IndexSnapshot, error) {
	ticker := models.Ticker(idx.Symbol)
	chart, err := y.chart(ctx, ticker, "5d")
	if err != nil {
		return nil, err
	}

	var closes []float64
	var lastTS int64
	for _, b := range chartBars(chart) {
		if b.Close == nil || math.IsNaN(*b.Close) || math.IsInf(*b.Close, 0) {
			continue
		}
		closes = append(closes, *b.Close)
		lastTS = b.Timestamp
	}
	if len(closes) == 0 {
		return nil, fetchErr(EmptyResult, ticker, nil)
	}

	current := closes[len(closes)-1]
	previous := current
	if len(closes) > 1 {
		previous = closes[len(closes)-2]
	}
	change := current - previous
	var changePct float64
	if previous != 0 {
		changePct = change / previous * 100
	}

	return &models.IndexSnapshot{
		Name:      idx.Name,
		Symbol:    idx.Symbol,
		Value:     current,
		Change:    change,
		ChangePct: changePct,
		AsOf:      time.Unix(lastTS, 0).UTC(),
	}, nil
}
