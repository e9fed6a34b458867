package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/seenimoa/stockdash/internal/infra"
	"github.com/seenimoa/stockdash/pkg/models"
)

// Default Yahoo Finance endpoints.
const (
	DefaultChartURL   = "https://query1.finance.yahoo.com/v8/finance/chart"
	DefaultSummaryURL = "https://query2.finance.yahoo.com/v10/finance/quoteSummary"
)

// summaryModules are requested from quoteSummary. Earlier modules win when
// two of them carry the same key.
var summaryModules = []string{
	"price",
	"summaryDetail",
	"assetProfile",
	"defaultKeyStatistics",
	"financialData",
}

// YahooOptions configures a Yahoo client. Zero values fall back to defaults.
type YahooOptions struct {
	ChartURL   string
	SummaryURL string
	UserAgent  string
	Client     *http.Client
	Limiter    *infra.RateLimiter
	Logger     *zap.Logger
}

// Yahoo implements Source using the public Yahoo Finance chart and
// quoteSummary endpoints. It holds no per-request state.
type Yahoo struct {
	chartURL   string
	summaryURL string
	userAgent  string
	client     *http.Client
	limiter    *infra.RateLimiter
	logger     *zap.Logger
}

// NewYahoo creates a Yahoo Finance client.
func NewYahoo(opts YahooOptions) *Yahoo {
	y := &Yahoo{
		chartURL:   strings.TrimRight(opts.ChartURL, "/"),
		summaryURL: strings.TrimRight(opts.SummaryURL, "/"),
		userAgent:  opts.UserAgent,
		client:     opts.Client,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
	}
	if y.chartURL == "" {
		y.chartURL = DefaultChartURL
	}
	if y.summaryURL == "" {
		y.summaryURL = DefaultSummaryURL
	}
	if y.client == nil {
		y.client = http.DefaultClient
	}
	if y.logger == nil {
		y.logger = zap.NewNop()
	}
	return y
}

// Name returns the data source name.
func (y *Yahoo) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance API types ---

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       map[string]any `json:"meta"`
	Timestamp  []int64        `json:"timestamp"`
	Indicators yfIndicators   `json:"indicators"`
}

type yfIndicators struct {
	Quote []yfOHLCV `json:"quote"`
}

// Volume is decoded as float because the provider occasionally sends it in
// exponent form.
type yfOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

type yfSummaryResponse struct {
	QuoteSummary struct {
		Result []map[string]any `json:"result"`
		Error  *yfError         `json:"error"`
	} `json:"quoteSummary"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// --- Public methods ---

// Fetch returns the daily bars and merged metadata for ticker over rng.
// The chart request is authoritative; a failed quoteSummary request only
// degrades metadata, unless the provider is throttling.
func (y *Yahoo) Fetch(ctx context.Context, ticker models.Ticker, rng models.Range) (*RawQuote, error) {
	if !rng.Valid() {
		return nil, fmt.Errorf("fetch %s: %w %q", ticker, models.ErrInvalidRange, rng)
	}

	chart, err := y.chart(ctx, ticker, string(rng))
	if err != nil {
		return nil, err
	}

	raw := &RawQuote{
		Symbol:   string(ticker),
		Metadata: make(map[string]any),
		Bars:     chartBars(chart),
	}
	if len(raw.Bars) == 0 {
		return nil, fetchErr(EmptyResult, ticker, nil)
	}

	summary, err := y.summary(ctx, ticker)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) && fe.Kind == RateLimited {
			return nil, err
		}
		y.logger.Warn("quoteSummary unavailable, using chart metadata",
			zap.String("ticker", string(ticker)), zap.Error(err))
	}
	for k, v := range summary {
		raw.Metadata[k] = v
	}
	for k, v := range chart.Meta {
		if _, ok := raw.Metadata[k]; !ok && v != nil {
			raw.Metadata[k] = v
		}
	}

	if s, ok := chart.Meta["symbol"].(string); ok && s != "" {
		raw.Symbol = s
	}
	raw.Timezone, _ = chart.Meta["exchangeTimezoneName"].(string)
	raw.GMTOffset = jsonInt(chart.Meta["gmtoffset"])

	y.logger.Debug("fetched quote",
		zap.String("ticker", raw.Symbol),
		zap.String("range", string(rng)),
		zap.Int("bars", len(raw.Bars)),
		zap.Int("metadata_keys", len(raw.Metadata)))
	return raw, nil
}

// --- Helpers ---

func (y *Yahoo) chart(ctx context.Context, ticker models.Ticker, rng string) (*yfChartResult, error) {
	u := fmt.Sprintf("%s/%s?range=%s&interval=1d&includePrePost=false",
		y.chartURL, url.PathEscape(string(ticker)), url.QueryEscape(rng))

	data, err := y.get(ctx, ticker, u)
	if err != nil {
		return nil, err
	}

	var resp yfChartResponse
	if err := decodeJSON(data, &resp); err != nil {
		return nil, fetchErr(NetworkError, ticker, fmt.Errorf("parse yfinance chart: %w", err))
	}
	if resp.Chart.Error != nil {
		return nil, providerErr(ticker, resp.Chart.Error)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fetchErr(NotFound, ticker, nil)
	}
	return &resp.Chart.Result[0], nil
}

func (y *Yahoo) summary(ctx context.Context, ticker models.Ticker) (map[string]any, error) {
	u := fmt.Sprintf("%s/%s?modules=%s",
		y.summaryURL, url.PathEscape(string(ticker)), strings.Join(summaryModules, ","))

	data, err := y.get(ctx, ticker, u)
	if err != nil {
		return nil, err
	}

	var resp yfSummaryResponse
	if err := decodeJSON(data, &resp); err != nil {
		return nil, fetchErr(NetworkError, ticker, fmt.Errorf("parse yfinance quoteSummary: %w", err))
	}
	if resp.QuoteSummary.Error != nil {
		return nil, providerErr(ticker, resp.QuoteSummary.Error)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fetchErr(NotFound, ticker, nil)
	}
	return flattenSummary(resp.QuoteSummary.Result[0]), nil
}

// get issues one paced GET and classifies any failure.
func (y *Yahoo) get(ctx context.Context, ticker models.Ticker, u string) ([]byte, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, fetchErr(NetworkError, ticker, err)
	}

	headers := map[string]string{"Accept": "application/json"}
	if y.userAgent != "" {
		headers["User-Agent"] = y.userAgent
	}

	data, _, err := infra.DoGet(ctx, y.client, u, headers)
	if err != nil {
		return nil, classify(ticker, err)
	}
	return data, nil
}

// classify maps a transport or HTTP failure onto a FetchKind.
func classify(ticker models.Ticker, err error) *FetchError {
	var httpErr *infra.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusTooManyRequests || isThrottleText(httpErr.Body):
			return fetchErr(RateLimited, ticker, err)
		case httpErr.StatusCode == http.StatusNotFound:
			return fetchErr(NotFound, ticker, err)
		}
	}
	return fetchErr(NetworkError, ticker, err)
}

// providerErr maps an error object embedded in a 200 response.
func providerErr(ticker models.Ticker, e *yfError) *FetchError {
	cause := fmt.Errorf("yfinance API error: %s: %s", e.Code, e.Description)
	switch {
	case strings.EqualFold(e.Code, "Not Found"):
		return fetchErr(NotFound, ticker, cause)
	case isThrottleText(e.Code) || isThrottleText(e.Description):
		return fetchErr(RateLimited, ticker, cause)
	}
	return fetchErr(NetworkError, ticker, cause)
}

func isThrottleText(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "too many requests") || strings.Contains(s, "rate limit")
}

func chartBars(r *yfChartResult) []RawBar {
	if r == nil || len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	bars := make([]RawBar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		bars = append(bars, RawBar{
			Timestamp: ts,
			Open:      at(q.Open, i),
			High:      at(q.High, i),
			Low:       at(q.Low, i),
			Close:     at(q.Close, i),
			Volume:    at(q.Volume, i),
		})
	}
	return bars
}

func at(vals []*float64, i int) *float64 {
	if i < len(vals) {
		return vals[i]
	}
	return nil
}

// flattenSummary merges quoteSummary modules into one key/value map,
// unwrapping {"raw": x, "fmt": "..."} objects to x. Empty objects, which the
// provider uses for "no value", and nested structures are skipped.
func flattenSummary(result map[string]any) map[string]any {
	out := make(map[string]any)
	for _, mod := range summaryModules {
		fields, ok := result[mod].(map[string]any)
		if !ok {
			continue
		}
		for k, v := range fields {
			if _, seen := out[k]; seen {
				continue
			}
			if val, ok := unwrapValue(v); ok {
				out[k] = val
			}
		}
	}
	return out
}

func unwrapValue(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		raw, ok := t["raw"]
		if !ok || raw == nil {
			return nil, false
		}
		return raw, true
	case []any:
		return nil, false
	default:
		return v, true
	}
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func jsonInt(v any) int {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return int(f)
		}
	case float64:
		return int(n)
	}
	return 0
}
