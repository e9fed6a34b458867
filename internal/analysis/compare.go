package analysis

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stockdash/pkg/models"
)

// CompareEntry is one ticker's outcome in a comparison. Exactly one of
// Analysis and Err is set.
type CompareEntry struct {
	Input    string           `json:"input"`
	Analysis *models.Analysis `json:"analysis,omitempty"`
	Problem  *Problem         `json:"problem,omitempty"`
	Err      error            `json:"-"`
}

// Compare analyzes several tickers concurrently, without headlines.
// Entries keep input order; a failing ticker never fails the batch.
func (s *Service) Compare(ctx context.Context, tickers []string, rng models.Range) []CompareEntry {
	entries := make([]CompareEntry, len(tickers))

	var g errgroup.Group
	g.SetLimit(s.opts.CompareConcurrency)
	for i, raw := range tickers {
		g.Go(func() error {
			entries[i].Input = raw
			a, err := s.AnalyzeQuiet(ctx, raw, rng)
			if err != nil {
				p := Describe(err)
				entries[i].Err = err
				entries[i].Problem = &p
				return nil
			}
			entries[i].Analysis = a
			return nil
		})
	}
	_ = g.Wait()
	return entries
}

// Series extracts the successful series of a comparison, in order.
func Series(entries []CompareEntry) []models.Series {
	out := make([]models.Series, 0, len(entries))
	for _, e := range entries {
		if e.Analysis != nil {
			out = append(out, e.Analysis.Series)
		}
	}
	return out
}
