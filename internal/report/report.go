package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/guregu/null/v6"

	"github.com/seenimoa/stockdash/internal/metrics"
	"github.com/seenimoa/stockdash/pkg/models"
	"github.com/seenimoa/stockdash/pkg/utils"
)

// Format specifies the report output format.
type Format string

const (
	FormatHTML Format = "html"
	FormatText Format = "text"
)

// ParseFormat accepts "html" and "text" ("txt" too). Empty means HTML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "html":
		return FormatHTML, nil
	case "text", "txt":
		return FormatText, nil
	}
	return "", fmt.Errorf("unsupported report format %q (want html or text)", s)
}

// Section identifies a part of the report that can be left out.
type Section string

const (
	SectionQuote       Section = "quote"
	SectionPerformance Section = "performance"
	SectionTechnical   Section = "technical"
	SectionCharts      Section = "charts"
	SectionNews        Section = "news"
)

// AllSections returns every section in display order.
func AllSections() []Section {
	return []Section{SectionQuote, SectionPerformance, SectionTechnical, SectionCharts, SectionNews}
}

// Config controls report generation.
type Config struct {
	Format    Format
	Sections  []Section
	Title     string
	ChartType models.ChartType
	ChartCfg  ChartConfig
}

// DefaultConfig returns an HTML report with every section and a line chart.
func DefaultConfig() Config {
	return Config{
		Format:    FormatHTML,
		Sections:  AllSections(),
		ChartType: models.ChartLine,
		ChartCfg:  DefaultChartConfig(),
	}
}

func (c Config) has(s Section) bool {
	for _, sec := range c.Sections {
		if sec == s {
			return true
		}
	}
	return false
}

// Data is the flattened model handed to the templates.
type Data struct {
	Title       string
	Ticker      string
	CompanyName string
	Sector      string
	Industry    string
	Currency    string
	Period      string
	GeneratedAt string
	TradingDays int
	DroppedRows int

	Quote       []Row
	Performance []Row
	Technical   []Row
	Trend       string
	TrendClass  string

	PriceChart  template.HTML
	VolumeChart template.HTML

	News []NewsRow

	ShowQuote       bool
	ShowPerformance bool
	ShowTechnical   bool
	ShowCharts      bool
	ShowNews        bool
}

// Row is one label/value line of a report table. Class is a CSS hint
// ("positive", "negative" or empty).
type Row struct {
	Label string
	Value string
	Class string
}

// NewsRow is a flattened headline.
type NewsRow struct {
	Title     string
	URL       string
	Source    string
	Published string
}

// Generate renders the analysis in cfg.Format.
func Generate(a *models.Analysis, cfg Config) (string, error) {
	if cfg.Format == FormatText {
		return GenerateText(a, cfg)
	}
	return GenerateHTML(a, cfg)
}

// GenerateHTML renders a self-contained HTML report with inline SVG charts.
func GenerateHTML(a *models.Analysis, cfg Config) (string, error) {
	if a == nil {
		return "", fmt.Errorf("analysis is nil")
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, buildData(a, cfg)); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

// GenerateText renders a terminal-friendly report.
func GenerateText(a *models.Analysis, cfg Config) (string, error) {
	if a == nil {
		return "", fmt.Errorf("analysis is nil")
	}
	return renderText(buildData(a, cfg)), nil
}

func buildData(a *models.Analysis, cfg Config) Data {
	if len(cfg.Sections) == 0 {
		cfg.Sections = AllSections()
	}
	snap, d := a.Snapshot, a.Derived

	data := Data{
		Title:       cfg.Title,
		Ticker:      string(a.Ticker),
		CompanyName: snap.DisplayName(),
		Sector:      orUnknown(snap.Sector),
		Industry:    orUnknown(snap.Industry),
		Currency:    orUnknown(snap.Currency),
		Period:      a.Series.Range.Label(),
		GeneratedAt: a.GeneratedAt.In(utils.NewYork).Format("02 Jan 2006, 03:04 PM MST"),
		TradingDays: a.Series.Len(),
		DroppedRows: a.DroppedRows,
		Trend:       string(d.Trend),
		TrendClass:  trendClass(d.Trend),

		ShowQuote:       cfg.has(SectionQuote),
		ShowPerformance: cfg.has(SectionPerformance),
		ShowTechnical:   cfg.has(SectionTechnical),
		ShowCharts:      cfg.has(SectionCharts) && a.Series.Len() > 0,
		ShowNews:        cfg.has(SectionNews) && len(a.News) > 0,
	}
	if data.Title == "" {
		data.Title = fmt.Sprintf("%s Stock Analysis", a.Ticker)
	}

	data.Quote = []Row{
		{Label: "Current Price", Value: utils.FormatPrice(snap.CurrentPrice, snap.Currency)},
		{Label: "Market Cap", Value: d.MarketCapText},
		{Label: "P/E Ratio", Value: d.PERatioText},
		{Label: "Dividend Yield", Value: d.DividendYieldText},
		{Label: "52 Week High", Value: utils.FormatPrice(snap.FiftyTwoWeekHigh, snap.Currency)},
		{Label: "52 Week Low", Value: utils.FormatPrice(snap.FiftyTwoWeekLow, snap.Currency)},
		{Label: "Average Volume", Value: utils.FormatVolume(snap.AverageVolume)},
		{Label: "Beta", Value: utils.FormatFixed2(snap.Beta)},
	}

	data.Performance = []Row{
		{Label: "Period Return", Value: d.PeriodReturnText, Class: signClass(d.PeriodReturn)},
		{Label: "Volatility (Annualized)", Value: d.VolatilityText},
		{Label: "Sharpe Ratio", Value: d.SharpeText, Class: signClass(d.SharpeRatio)},
		{Label: "Max Drawdown", Value: d.DrawdownText, Class: signClass(d.MaxDrawdown)},
		{Label: "Trend", Value: data.Trend, Class: data.TrendClass},
	}

	ind := a.Indicators
	data.Technical = []Row{
		{Label: "SMA 20", Value: utils.FormatFixed2(metrics.Latest(ind.SMA20))},
		{Label: "SMA 50", Value: utils.FormatFixed2(metrics.Latest(ind.SMA50))},
		{Label: "SMA 200", Value: utils.FormatFixed2(metrics.Latest(ind.SMA200))},
		{Label: "EMA 12", Value: utils.FormatFixed2(metrics.Latest(ind.EMA12))},
		{Label: "EMA 26", Value: utils.FormatFixed2(metrics.Latest(ind.EMA26))},
		{Label: "MACD", Value: utils.FormatFixed2(metrics.Latest(ind.MACD)), Class: signClass(metrics.Latest(ind.MACD))},
		{Label: "MACD Signal", Value: utils.FormatFixed2(metrics.Latest(ind.MACDSignal))},
		{Label: "RSI 14", Value: utils.FormatFixed2(metrics.Latest(ind.RSI14)), Class: rsiClass(metrics.Latest(ind.RSI14))},
		{Label: "Bollinger Upper", Value: utils.FormatFixed2(metrics.Latest(ind.BollingerUpper))},
		{Label: "Bollinger Lower", Value: utils.FormatFixed2(metrics.Latest(ind.BollingerLower))},
	}

	if data.ShowCharts {
		chartCfg := cfg.ChartCfg
		chartCfg.Title = ""
		data.PriceChart = template.HTML(PriceChart(a.Series, cfg.ChartType, DefaultOverlays(ind), chartCfg))

		volCfg := cfg.ChartCfg
		volCfg.Title = fmt.Sprintf("%s Volume", a.Ticker)
		volCfg.Height = 200
		data.VolumeChart = template.HTML(VolumeChart(a.Series.Bars, volCfg))
	}

	for _, n := range a.News {
		row := NewsRow{Title: n.Title, URL: n.URL, Source: n.Source}
		if !n.PublishedAt.IsZero() {
			row.Published = n.PublishedAt.In(utils.NewYork).Format("Jan 02, 2006")
		}
		data.News = append(data.News, row)
	}
	return data
}

func orUnknown(s null.String) string {
	if !s.Valid || s.String == "" {
		return models.UnknownText
	}
	return s.String
}

func signClass(f null.Float) string {
	switch {
	case !f.Valid:
		return ""
	case f.Float64 > 0:
		return "positive"
	case f.Float64 < 0:
		return "negative"
	}
	return ""
}

func rsiClass(f null.Float) string {
	switch {
	case !f.Valid:
		return ""
	case f.Float64 >= 70:
		return "negative" // overbought
	case f.Float64 <= 30:
		return "positive" // oversold
	}
	return ""
}

func trendClass(t models.Trend) string {
	switch t {
	case models.TrendUpward:
		return "positive"
	case models.TrendDownward:
		return "negative"
	}
	return ""
}

func renderText(d Data) string {
	var sb strings.Builder
	line := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)

	sb.WriteString("\n" + line + "\n")
	fmt.Fprintf(&sb, "  %s\n", d.Title)
	fmt.Fprintf(&sb, "  Generated: %s | Period: %s\n", d.GeneratedAt, d.Period)
	sb.WriteString(line + "\n\n")

	fmt.Fprintf(&sb, "  %s (%s)\n", d.CompanyName, d.Ticker)
	fmt.Fprintf(&sb, "  Sector: %s | Industry: %s | Currency: %s\n", d.Sector, d.Industry, d.Currency)
	fmt.Fprintf(&sb, "  Trading days: %d", d.TradingDays)
	if d.DroppedRows > 0 {
		fmt.Fprintf(&sb, " (%d rows dropped)", d.DroppedRows)
	}
	sb.WriteString("\n" + thin + "\n")

	writeRows := func(title string, show bool, rows []Row) {
		if !show {
			return
		}
		fmt.Fprintf(&sb, "\n  ■ %s\n", title)
		for _, r := range rows {
			fmt.Fprintf(&sb, "    %-24s %s\n", r.Label, r.Value)
		}
		sb.WriteString(thin + "\n")
	}
	writeRows("QUOTE", d.ShowQuote, d.Quote)
	writeRows("PERFORMANCE & RISK", d.ShowPerformance, d.Performance)
	writeRows("TECHNICAL INDICATORS", d.ShowTechnical, d.Technical)

	if d.ShowNews {
		sb.WriteString("\n  ■ LATEST NEWS\n")
		for _, n := range d.News {
			fmt.Fprintf(&sb, "    • %s", n.Title)
			if n.Source != "" {
				fmt.Fprintf(&sb, " (%s)", n.Source)
			}
			sb.WriteString("\n")
			if n.URL != "" {
				fmt.Fprintf(&sb, "      %s\n", n.URL)
			}
		}
		sb.WriteString(thin + "\n")
	}

	sb.WriteString("\n  Data from Yahoo Finance. Not financial advice.\n")
	sb.WriteString(line + "\n")
	return sb.String()
}
