package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// Trend is the direction of the 20-bar moving average.
type Trend string

const (
	TrendUpward       Trend = "Upward"
	TrendDownward     Trend = "Downward"
	TrendSideways     Trend = "Sideways"
	TrendInsufficient Trend = "Insufficient Data"
)

// DerivedMetrics are display values computed from a snapshot and its series.
// They are never authoritative; every numeric field may be unknown.
type DerivedMetrics struct {
	PeriodReturn      null.Float `json:"period_return"` // percent
	PeriodReturnText  string     `json:"period_return_text"`
	MarketCapText     string     `json:"market_cap_text"`
	DividendYieldPct  null.Float `json:"dividend_yield_pct"`
	DividendYieldText string     `json:"dividend_yield_text"`
	PERatioText       string     `json:"pe_ratio_text"`

	Volatility     null.Float `json:"volatility"`   // annualized, percent
	SharpeRatio    null.Float `json:"sharpe_ratio"` // annualized
	MaxDrawdown    null.Float `json:"max_drawdown"` // percent, <= 0
	VolatilityText string     `json:"volatility_text"`
	SharpeText     string     `json:"sharpe_text"`
	DrawdownText   string     `json:"drawdown_text"`
	Trend          Trend      `json:"trend"`
}

// Indicators holds technical indicator series aligned index-for-index with
// the bars they were computed from. Warm-up points are unknown.
type Indicators struct {
	SMA20          []null.Float `json:"sma_20"`
	SMA50          []null.Float `json:"sma_50"`
	SMA200         []null.Float `json:"sma_200"`
	EMA12          []null.Float `json:"ema_12"`
	EMA26          []null.Float `json:"ema_26"`
	MACD           []null.Float `json:"macd"`
	MACDSignal     []null.Float `json:"macd_signal"`
	RSI14          []null.Float `json:"rsi_14"`
	BollingerUpper []null.Float `json:"bollinger_upper"`
	BollingerLower []null.Float `json:"bollinger_lower"`
}

// NewsArticle is a single headline about a company.
type NewsArticle struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// IndexSnapshot summarizes one market index from its last two closes.
type IndexSnapshot struct {
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	Value     float64   `json:"value"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"change_pct"`
	AsOf      time.Time `json:"as_of"`
}

// Analysis is the full result of one pipeline run for a ticker.
type Analysis struct {
	Ticker      Ticker         `json:"ticker"`
	Snapshot    QuoteSnapshot  `json:"snapshot"`
	Series      Series         `json:"series"`
	Derived     DerivedMetrics `json:"derived"`
	Indicators  Indicators     `json:"indicators"`
	News        []NewsArticle  `json:"news,omitempty"`
	DroppedRows int            `json:"dropped_rows"`
	GeneratedAt time.Time      `json:"generated_at"`
}
