package report

// htmlTemplate is the analysis report layout. Charts are inlined as SVG so
// the page has no external dependencies.
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #1f77b4;
    --green: #16a34a;
    --red: #dc2626;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 900px;
    margin: 0 auto;
    padding: 20px;
  }
  h1 { font-size: 1.5rem; margin-bottom: 4px; }
  h2 { font-size: 1.2rem; margin: 24px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); }
  .muted { color: var(--muted); font-size: 0.85rem; }
  .header {
    display: flex;
    justify-content: space-between;
    align-items: flex-start;
    border-bottom: 3px solid var(--accent);
    padding-bottom: 12px;
    margin-bottom: 16px;
  }
  .header-right { text-align: right; }
  .ticker-badge {
    display: inline-block;
    background: var(--accent);
    color: white;
    padding: 2px 12px;
    border-radius: 4px;
    font-weight: 700;
    margin-right: 8px;
  }
  .metric-grid {
    display: grid;
    grid-template-columns: repeat(auto-fill, minmax(200px, 1fr));
    gap: 8px;
    margin: 10px 0 16px;
  }
  .metric-card {
    background: var(--section-bg);
    padding: 8px 12px;
    border-radius: 6px;
    display: flex;
    justify-content: space-between;
  }
  .metric-card .label { color: var(--muted); font-size: 0.85rem; }
  .metric-card .value { font-weight: 600; }
  .positive { color: var(--green); }
  .negative { color: var(--red); }
  .chart-container { margin: 12px 0; overflow-x: auto; }
  .chart-container svg { max-width: 100%; height: auto; }
  .news li { margin: 6px 0 6px 18px; }
  .footer {
    margin-top: 30px;
    padding-top: 12px;
    border-top: 2px solid var(--border);
    font-size: 0.8rem;
    color: var(--muted);
    text-align: center;
  }
  @media print {
    body { max-width: 100%; padding: 10px; }
    .section { page-break-inside: avoid; }
  }
</style>
</head>
<body>

<div class="header">
  <div>
    <h1><span class="ticker-badge">{{.Ticker}}</span> {{.CompanyName}}</h1>
    <p class="muted">{{.Sector}} · {{.Industry}} · {{.Currency}}</p>
  </div>
  <div class="header-right">
    <p class="muted">{{.GeneratedAt}}</p>
    <p class="muted">{{.Period}} · {{.TradingDays}} trading days{{if .DroppedRows}} · {{.DroppedRows}} rows dropped{{end}}</p>
  </div>
</div>

{{if .ShowQuote}}
<div class="section">
  <h2>Quote</h2>
  <div class="metric-grid">
    {{range .Quote}}<div class="metric-card"><span class="label">{{.Label}}</span><span class="value {{.Class}}">{{.Value}}</span></div>
    {{end}}
  </div>
</div>
{{end}}

{{if .ShowCharts}}
<div class="section">
  <h2>Price History</h2>
  <div class="chart-container">{{.PriceChart}}</div>
  <div class="chart-container">{{.VolumeChart}}</div>
</div>
{{end}}

{{if .ShowPerformance}}
<div class="section">
  <h2>Performance &amp; Risk</h2>
  <div class="metric-grid">
    {{range .Performance}}<div class="metric-card"><span class="label">{{.Label}}</span><span class="value {{.Class}}">{{.Value}}</span></div>
    {{end}}
  </div>
</div>
{{end}}

{{if .ShowTechnical}}
<div class="section">
  <h2>Technical Indicators</h2>
  <div class="metric-grid">
    {{range .Technical}}<div class="metric-card"><span class="label">{{.Label}}</span><span class="value {{.Class}}">{{.Value}}</span></div>
    {{end}}
  </div>
</div>
{{end}}

{{if .ShowNews}}
<div class="section">
  <h2>Latest News</h2>
  <ul class="news">
    {{range .News}}<li><a href="{{.URL}}" target="_blank" rel="noopener">{{.Title}}</a>{{if .Source}} <span class="muted">{{.Source}}</span>{{end}}{{if .Published}} <span class="muted">{{.Published}}</span>{{end}}</li>
    {{end}}
  </ul>
</div>
{{end}}

<div class="footer">
  <p>Data from Yahoo Finance. For informational purposes only; not financial advice.</p>
  <p>Generated {{.GeneratedAt}}</p>
</div>

</body>
</html>`
