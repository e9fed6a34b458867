// Package report renders an analysis for people: SVG price, candlestick and
// volume charts, plus HTML and plain-text reports built from them.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/guregu/null/v6"

	"github.com/seenimoa/stockdash/pkg/models"
	"github.com/seenimoa/stockdash/pkg/utils"
)

// ChartConfig holds rendering parameters for SVG charts.
type ChartConfig struct {
	Width        int
	Height       int
	MarginTop    int
	MarginRight  int
	MarginBottom int
	MarginLeft   int
	BgColor      string
	GridColor    string
	TextColor    string
	UpColor      string
	DownColor    string
	LineColor    string
	FontSize     int
	Title        string
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        800,
		Height:       400,
		MarginTop:    40,
		MarginRight:  30,
		MarginBottom: 50,
		MarginLeft:   80,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		UpColor:      "#26a69a",
		DownColor:    "#ef5350",
		LineColor:    "#1f77b4",
		FontSize:     11,
	}
}

// withDefaults fills zero fields so callers can override only what they need.
func (c ChartConfig) withDefaults() ChartConfig {
	d := DefaultChartConfig()
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Height <= 0 {
		c.Height = d.Height
	}
	if c.MarginTop == 0 && c.MarginRight == 0 && c.MarginBottom == 0 && c.MarginLeft == 0 {
		c.MarginTop, c.MarginRight, c.MarginBottom, c.MarginLeft = d.MarginTop, d.MarginRight, d.MarginBottom, d.MarginLeft
	}
	c.BgColor = orDefault(c.BgColor, d.BgColor)
	c.GridColor = orDefault(c.GridColor, d.GridColor)
	c.TextColor = orDefault(c.TextColor, d.TextColor)
	c.UpColor = orDefault(c.UpColor, d.UpColor)
	c.DownColor = orDefault(c.DownColor, d.DownColor)
	c.LineColor = orDefault(c.LineColor, d.LineColor)
	if c.FontSize <= 0 {
		c.FontSize = d.FontSize
	}
	return c
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Overlay is an extra line drawn over the price, e.g. a moving average.
// Values align with the bars; unknown points break the line.
type Overlay struct {
	Name   string
	Values []null.Float
	Color  string
}

var overlayColors = []string{"#ff9800", "#9c27b0", "#4caf50", "#e91e63"}

// DefaultOverlays returns the 20/50-day SMAs, the usual price overlays.
func DefaultOverlays(ind models.Indicators) []Overlay {
	return []Overlay{
		{Name: "SMA 20", Values: ind.SMA20},
		{Name: "SMA 50", Values: ind.SMA50},
	}
}

// PriceChart draws the series as the requested chart type.
func PriceChart(series models.Series, chartType models.ChartType, overlays []Overlay, cfg ChartConfig) string {
	if cfg.Title == "" {
		cfg.Title = fmt.Sprintf("%s Price (%s)", series.Ticker, series.Range.Label())
	}
	if chartType == models.ChartCandlestick {
		return CandlestickChart(series.Bars, overlays, cfg)
	}
	return LineChart(series.Bars, overlays, cfg)
}

// plot maps bar indices and values onto the drawing area.
type plot struct {
	cfg      ChartConfig
	x, y     float64
	w, h     float64
	n        int
	min, max float64
}

func newPlot(cfg ChartConfig, n int, lo, hi float64) plot {
	span := hi - lo
	if span < 1e-9 {
		span = math.Max(math.Abs(hi)*0.1, 1)
	}
	return plot{
		cfg: cfg,
		x:   float64(cfg.MarginLeft),
		y:   float64(cfg.MarginTop),
		w:   float64(cfg.Width - cfg.MarginLeft - cfg.MarginRight),
		h:   float64(cfg.Height - cfg.MarginTop - cfg.MarginBottom),
		n:   n,
		min: lo - span*0.05,
		max: hi + span*0.05,
	}
}

// slot returns the center x of bar i.
func (p plot) slot(i int) float64 {
	return p.x + (float64(i)+0.5)*p.w/float64(p.n)
}

func (p plot) slotWidth() float64 { return p.w / float64(p.n) }

func (p plot) yOf(v float64) float64 {
	return p.y + p.h - (v-p.min)/(p.max-p.min)*p.h
}

func (p plot) frame(sb *strings.Builder, labelFn func(float64) string) {
	c := p.cfg
	sb.WriteString(svgHeader(c))
	fmt.Fprintf(sb, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`, c.Width, c.Height, c.BgColor)
	fmt.Fprintf(sb, `<text x="%d" y="22" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		c.Width/2, c.TextColor, escapeXML(c.Title))

	const gridLines = 5
	for i := 0; i <= gridLines; i++ {
		v := p.min + (p.max-p.min)*float64(i)/gridLines
		y := p.yOf(v)
		fmt.Fprintf(sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-dasharray="3,3"/>`,
			p.x, y, p.x+p.w, y, c.GridColor)
		fmt.Fprintf(sb, `<text x="%.1f" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			p.x-6, y+4, c.FontSize, c.TextColor, labelFn(v))
	}
}

func (p plot) dateAxis(sb *strings.Builder, bars []models.PriceBar) {
	step := max(len(bars)/6, 1)
	for i := 0; i < len(bars); i += step {
		x := p.slot(i)
		fmt.Fprintf(sb, `<text x="%.1f" y="%.1f" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			x, p.y+p.h+18, p.cfg.FontSize-1, p.cfg.TextColor, bars[i].Date.Format("Jan 02 '06"))
	}
}

func (p plot) overlays(sb *strings.Builder, overlays []Overlay, legendStart int) {
	legend := legendStart
	for oi, o := range overlays {
		if len(o.Values) != p.n {
			continue
		}
		color := o.Color
		if color == "" {
			color = overlayColors[oi%len(overlayColors)]
		}
		points := make([]float64, p.n)
		known := make([]bool, p.n)
		for i, v := range o.Values {
			points[i], known[i] = v.Float64, v.Valid
		}
		path := polyline(p, points, known)
		if path == "" {
			continue
		}
		fmt.Fprintf(sb, `<path d="%s" fill="none" stroke="%s" stroke-width="1.5" opacity="0.85"/>`, path, color)
		p.legendEntry(sb, legend, o.Name, color)
		legend++
	}
}

func (p plot) legendEntry(sb *strings.Builder, slot int, name, color string) {
	ly := p.y + 12 + float64(slot)*16
	fmt.Fprintf(sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="2"/>`,
		p.x+10, ly, p.x+30, ly, color)
	fmt.Fprintf(sb, `<text x="%.1f" y="%.1f" font-size="10" fill="%s">%s</text>`,
		p.x+35, ly+4, p.cfg.TextColor, escapeXML(name))
}

// polyline builds an SVG path, starting a new segment after every gap.
func polyline(p plot, values []float64, known []bool) string {
	var parts []string
	pen := false
	for i, v := range values {
		if !known[i] || math.IsNaN(v) {
			pen = false
			continue
		}
		cmd := "L"
		if !pen {
			cmd = "M"
		}
		parts = append(parts, fmt.Sprintf("%s%.1f,%.1f", cmd, p.slot(i), p.yOf(v)))
		pen = true
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0] + " l0.1,0"
	}
	return strings.Join(parts, " ")
}

// LineChart draws closing prices with optional overlays.
func LineChart(bars []models.PriceBar, overlays []Overlay, cfg ChartConfig) string {
	cfg = cfg.withDefaults()
	if len(bars) == 0 {
		return emptySVG(cfg, "No price data available")
	}
	if cfg.Title == "" {
		cfg.Title = "Closing Price"
	}

	closes := make([]float64, len(bars))
	known := make([]bool, len(bars))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, b := range bars {
		closes[i], known[i] = b.Close, true
		lo, hi = math.Min(lo, b.Close), math.Max(hi, b.Close)
	}
	lo, hi = overlayBounds(overlays, len(bars), lo, hi)

	p := newPlot(cfg, len(bars), lo, hi)
	var sb strings.Builder
	p.frame(&sb, priceLabel)
	fmt.Fprintf(&sb, `<path d="%s" fill="none" stroke="%s" stroke-width="2"/>`, polyline(p, closes, known), cfg.LineColor)
	p.legendEntry(&sb, 0, "Close", cfg.LineColor)
	p.overlays(&sb, overlays, 1)
	p.dateAxis(&sb, bars)
	sb.WriteString("</svg>")
	return sb.String()
}

// CandlestickChart draws OHLC candles with optional overlays.
func CandlestickChart(bars []models.PriceBar, overlays []Overlay, cfg ChartConfig) string {
	cfg = cfg.withDefaults()
	if len(bars) == 0 {
		return emptySVG(cfg, "No price data available")
	}
	if cfg.Title == "" {
		cfg.Title = "Price"
	}

	lo, hi := bars[0].Low, bars[0].High
	for _, b := range bars {
		lo, hi = math.Min(lo, b.Low), math.Max(hi, b.High)
	}
	lo, hi = overlayBounds(overlays, len(bars), lo, hi)

	p := newPlot(cfg, len(bars), lo, hi)
	body := math.Min(p.slotWidth()*0.7, 10)

	var sb strings.Builder
	p.frame(&sb, priceLabel)
	for i, b := range bars {
		color := cfg.UpColor
		if b.Close < b.Open {
			color = cfg.DownColor
		}
		x := p.slot(i)
		fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="1"/>`,
			x, p.yOf(b.High), x, p.yOf(b.Low), color)

		top := p.yOf(math.Max(b.Open, b.Close))
		height := math.Max(p.yOf(math.Min(b.Open, b.Close))-top, 1)
		fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`,
			x-body/2, top, body, height, color)
	}
	p.overlays(&sb, overlays, 0)
	p.dateAxis(&sb, bars)
	sb.WriteString("</svg>")
	return sb.String()
}

// VolumeChart draws daily volume bars coloured by the day's direction.
func VolumeChart(bars []models.PriceBar, cfg ChartConfig) string {
	cfg = cfg.withDefaults()
	if len(bars) == 0 {
		return emptySVG(cfg, "No volume data available")
	}
	if cfg.Title == "" {
		cfg.Title = "Volume"
	}

	var maxVol int64
	for _, b := range bars {
		maxVol = max(maxVol, b.Volume)
	}

	p := newPlot(cfg, len(bars), 0, float64(maxVol))
	p.min = 0
	width := math.Max(p.slotWidth()*0.8, 1)

	var sb strings.Builder
	p.frame(&sb, func(v float64) string {
		return utils.FormatLargeNumber(null.FloatFrom(math.Max(v, 0)))
	})
	base := p.yOf(0)
	for i, b := range bars {
		color := cfg.UpColor
		if b.Close < b.Open {
			color = cfg.DownColor
		}
		top := p.yOf(float64(b.Volume))
		fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" opacity="0.7"/>`,
			p.slot(i)-width/2, top, width, base-top, color)
	}
	p.dateAxis(&sb, bars)
	sb.WriteString("</svg>")
	return sb.String()
}

// ComparisonChart rebases each series to 100 at its first close so
// instruments with different prices share one axis.
func ComparisonChart(series []models.Series, cfg ChartConfig) string {
	cfg = cfg.withDefaults()
	if cfg.Title == "" {
		cfg.Title = "Relative Performance (rebased to 100)"
	}

	longest := 0
	for _, s := range series {
		longest = max(longest, s.Len())
	}
	if longest == 0 {
		return emptySVG(cfg, "No price data available")
	}

	lines := make([]Overlay, 0, len(series))
	lo, hi := math.Inf(1), math.Inf(-1)
	var axis []models.PriceBar
	for _, s := range series {
		first, ok := s.First()
		if !ok || first.Close == 0 {
			continue
		}
		vals := make([]null.Float, longest)
		offset := longest - s.Len()
		for i, b := range s.Bars {
			v := b.Close / first.Close * 100
			vals[offset+i] = null.FloatFrom(v)
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		lines = append(lines, Overlay{Name: string(s.Ticker), Values: vals})
		if s.Len() == longest {
			axis = s.Bars
		}
	}
	if len(lines) == 0 {
		return emptySVG(cfg, "No price data available")
	}

	p := newPlot(cfg, longest, lo, hi)
	var sb strings.Builder
	p.frame(&sb, func(v float64) string { return fmt.Sprintf("%.0f", v) })
	p.overlays(&sb, lines, 0)
	p.dateAxis(&sb, axis)
	sb.WriteString("</svg>")
	return sb.String()
}

func overlayBounds(overlays []Overlay, n int, lo, hi float64) (float64, float64) {
	for _, o := range overlays {
		if len(o.Values) != n {
			continue
		}
		for _, v := range o.Values {
			if v.Valid && !math.IsNaN(v.Float64) {
				lo, hi = math.Min(lo, v.Float64), math.Max(hi, v.Float64)
			}
		}
	}
	return lo, hi
}

func priceLabel(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// --- SVG helpers ---

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&#39;")

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
