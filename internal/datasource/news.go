package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/seenimoa/stockdash/internal/infra"
	"github.com/seenimoa/stockdash/pkg/models"
)

// DefaultNewsURL is the Yahoo headline feed; %s receives the ticker.
const DefaultNewsURL = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US"

// DefaultNewsLimit is how many headlines are returned when no limit is given.
const DefaultNewsLimit = 5

// NewsOptions configures a News client. Zero values fall back to defaults.
type NewsOptions struct {
	FeedURL   string
	UserAgent string
	Client    *http.Client
	Limiter   *infra.RateLimiter
	Logger    *zap.Logger
}

// News fetches company headlines from the provider's RSS feed.
type News struct {
	feedURL   string
	userAgent string
	client    *http.Client
	limiter   *infra.RateLimiter
	logger    *zap.Logger
}

// NewNews creates a news client.
func NewNews(opts NewsOptions) *News {
	n := &News{
		feedURL:   opts.FeedURL,
		userAgent: opts.UserAgent,
		client:    opts.Client,
		limiter:   opts.Limiter,
		logger:    opts.Logger,
	}
	if n.feedURL == "" {
		n.feedURL = DefaultNewsURL
	}
	if n.userAgent == "" {
		n.userAgent = infra.DefaultUserAgent
	}
	if n.client == nil {
		n.client = http.DefaultClient
	}
	if n.logger == nil {
		n.logger = zap.NewNop()
	}
	return n
}

// Name returns the data source name.
func (n *News) Name() string { return "Yahoo Finance News" }

// CompanyNews returns up to limit headlines for ticker, newest first.
// limit <= 0 means DefaultNewsLimit.
func (n *News) CompanyNews(ctx context.Context, ticker models.Ticker, limit int) ([]models.NewsArticle, error) {
	if limit <= 0 {
		limit = DefaultNewsLimit
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feedURL := n.feedURL
	if strings.Contains(feedURL, "%s") {
		feedURL = fmt.Sprintf(feedURL, url.QueryEscape(string(ticker)))
	}

	parser := gofeed.NewParser()
	parser.Client = n.client
	parser.UserAgent = n.userAgent

	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS for %s: %w", ticker, err)
	}

	source := feed.Title
	if source == "" {
		source = n.Name()
	}

	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		a := models.NewsArticle{
			Title:   strings.TrimSpace(item.Title),
			URL:     item.Link,
			Source:  source,
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = item.PublishedParsed.UTC()
		}
		articles = append(articles, a)
	}

	sortArticlesByDate(articles)
	if len(articles) > limit {
		articles = articles[:limit]
	}

	n.logger.Debug("fetched news", zap.String("ticker", string(ticker)), zap.Int("articles", len(articles)))
	return articles, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// sortArticlesByDate orders articles newest first. Undated articles sink.
func sortArticlesByDate(articles []models.NewsArticle) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}
