// Package analysis runs the dashboard pipeline for a ticker:
// validate, fetch, normalize, derive. Every run is independent; nothing is
// cached between runs.
package analysis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/stockdash/internal/datasource"
	"github.com/seenimoa/stockdash/internal/metrics"
	"github.com/seenimoa/stockdash/internal/normalize"
	"github.com/seenimoa/stockdash/pkg/models"
	"github.com/seenimoa/stockdash/pkg/utils"
)

// NewsSource supplies company headlines. datasource.News implements it.
type NewsSource interface {
	CompanyNews(ctx context.Context, ticker models.Ticker, limit int) ([]models.NewsArticle, error)
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	MaxTickerLen       int
	Metrics            metrics.Options
	News               NewsSource // optional
	NewsLimit          int
	CompareConcurrency int
	Logger             *zap.Logger
	Now                func() time.Time
}

// DefaultCompareConcurrency bounds parallel pipelines in Compare.
const DefaultCompareConcurrency = 4

// Service runs analyses against a Source. Safe for concurrent use.
type Service struct {
	source datasource.Source
	opts   Options
	logger *zap.Logger
}

// NewService creates a Service.
func NewService(source datasource.Source, opts Options) *Service {
	if opts.MaxTickerLen <= 0 {
		opts.MaxTickerLen = utils.DefaultMaxTickerLen
	}
	if opts.Metrics == (metrics.Options{}) {
		opts.Metrics = metrics.DefaultOptions()
	}
	if opts.NewsLimit <= 0 {
		opts.NewsLimit = datasource.DefaultNewsLimit
	}
	if opts.CompareConcurrency <= 0 {
		opts.CompareConcurrency = DefaultCompareConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{source: source, opts: opts, logger: opts.Logger}
}

// Validate checks and canonicalizes a user-entered ticker.
func (s *Service) Validate(raw string) (models.Ticker, error) {
	return utils.ValidateTicker(raw, s.opts.MaxTickerLen)
}

// Analyze runs the full pipeline. Errors keep their module type:
// *utils.ValidationError, *datasource.FetchError or *normalize.NormalizeError.
// Headlines are best effort and never fail the analysis.
func (s *Service) Analyze(ctx context.Context, raw string, rng models.Range) (*models.Analysis, error) {
	a, err := s.analyze(ctx, raw, rng)
	if err != nil {
		return nil, err
	}
	s.attachNews(ctx, a)
	return a, nil
}

// AnalyzeQuiet is Analyze without headlines.
func (s *Service) AnalyzeQuiet(ctx context.Context, raw string, rng models.Range) (*models.Analysis, error) {
	return s.analyze(ctx, raw, rng)
}

func (s *Service) analyze(ctx context.Context, raw string, rng models.Range) (*models.Analysis, error) {
	ticker, err := s.Validate(raw)
	if err != nil {
		return nil, err
	}
	if rng == "" {
		rng = models.DefaultRange
	}
	if !rng.Valid() {
		return nil, fmt.Errorf("%w %q (want one of 1mo, 3mo, 6mo, 1y, 2y, 5y)", models.ErrInvalidRange, rng)
	}

	start := s.opts.Now()
	log := s.logger.With(zap.String("ticker", ticker.String()), zap.String("range", string(rng)))

	rawQuote, err := s.source.Fetch(ctx, ticker, rng)
	if err != nil {
		log.Warn("fetch failed", zap.Error(err))
		return nil, err
	}

	snap, series, report, err := normalize.Normalize(rawQuote)
	if err != nil {
		log.Warn("normalize failed", zap.Error(err))
		return nil, err
	}
	if report.Dropped() > 0 {
		log.Info("rows dropped during normalization",
			zap.Int("input_rows", report.InputRows),
			zap.Int("null_close", report.DroppedNullClose),
			zap.Int("bad_rows", len(report.BadRows)),
			zap.Int("duplicates", report.Duplicates))
	}

	// The provider may canonicalize the symbol; keep what the user asked for.
	snap.Symbol = ticker
	series.Ticker = ticker
	series.Range = rng
	now := s.opts.Now()
	snap.FetchedAt = now

	a := &models.Analysis{
		Ticker:      ticker,
		Snapshot:    snap,
		Series:      series,
		Derived:     metrics.DeriveWith(snap, series, s.opts.Metrics),
		Indicators:  metrics.Indicators(series),
		DroppedRows: report.Dropped(),
		GeneratedAt: now,
	}
	log.Debug("analysis complete", zap.Int("bars", series.Len()), zap.Duration("took", now.Sub(start)))
	return a, nil
}

func (s *Service) attachNews(ctx context.Context, a *models.Analysis) {
	if s.opts.News == nil {
		return
	}
	news, err := s.opts.News.CompanyNews(ctx, a.Ticker, s.opts.NewsLimit)
	if err != nil {
		s.logger.Warn("news unavailable", zap.String("ticker", a.Ticker.String()), zap.Error(err))
		return
	}
	a.News = news
}

// News fetches headlines for a ticker on their own.
func (s *Service) News(ctx context.Context, raw string, limit int) ([]models.NewsArticle, error) {
	ticker, err := s.Validate(raw)
	if err != nil {
		return nil, err
	}
	if s.opts.News == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = s.opts.NewsLimit
	}
	return s.opts.News.CompanyNews(ctx, ticker, limit)
}
