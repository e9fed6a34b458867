package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/guregu/null/v6"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/stockdash/api"
	"github.com/seenimoa/stockdash/internal/analysis"
	"github.com/seenimoa/stockdash/internal/config"
	"github.com/seenimoa/stockdash/internal/export"
	"github.com/seenimoa/stockdash/internal/report"
	"github.com/seenimoa/stockdash/pkg/models"
	"github.com/seenimoa/stockdash/pkg/utils"
)

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "stockdash %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "  commit:  %s\n", commit)
		fmt.Fprintf(cmd.OutOrStdout(), "  built:   %s\n", date)
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [ticker]",
	Short: "Analyze a stock and print a report",
	Long: `Fetch the quote and price history for a ticker, derive return and risk
metrics and print them as a text report (default), an HTML report with
embedded charts, or JSON.`,
	Example: `  stockdash analyze AAPL
  stockdash analyze msft --range 6mo --format html --out msft.html`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rng, err := rangeFlag(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		chartType, _ := cmd.Flags().GetString("chart")
		noNews, _ := cmd.Flags().GetBool("no-news")
		out, _ := cmd.Flags().GetString("out")

		d, err := wire(cfg, logger)
		if err != nil {
			return err
		}
		analyze := d.svc.Analyze
		if noNews {
			analyze = d.svc.AnalyzeQuiet
		}
		a, err := analyze(cmd.Context(), args[0], rng)
		if err != nil {
			return describe(err)
		}

		return withOutput(cmd, out, func(w io.Writer) error {
			return printAnalysis(w, a, format, chartType)
		})
	},
}

func init() {
	analyzeCmd.Flags().StringP("range", "r", "", "period: 1mo, 3mo, 6mo, 1y, 2y, 5y (default from config)")
	analyzeCmd.Flags().StringP("format", "f", "text", "output format: text, html, json")
	analyzeCmd.Flags().String("chart", "candlestick", "price chart type for html: line, candlestick")
	analyzeCmd.Flags().Bool("no-news", false, "skip headlines")
	analyzeCmd.Flags().StringP("out", "o", "", "write to file instead of stdout")
}

// printAnalysis renders a in the requested format.
func printAnalysis(w io.Writer, a *models.Analysis, format, chartType string) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "text" // matches the --format default
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	case "html", "text", "txt":
		f, err := report.ParseFormat(format)
		if err != nil {
			return err
		}
		ct, err := models.ParseChartType(chartType)
		if err != nil {
			return err
		}
		rcfg := report.DefaultConfig()
		rcfg.Format = f
		rcfg.ChartType = ct
		out, err := report.Generate(a, rcfg)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}
	return fmt.Errorf("unsupported format %q (want text, html or json)", format)
}

// --- Export Command ---

var exportCmd = &cobra.Command{
	Use:   "export [ticker]",
	Short: "Export metadata, metrics and price history to CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rng, err := rangeFlag(cmd)
		if err != nil {
			return err
		}
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = cfg.Export.Dir
		}

		d, err := wire(cfg, logger)
		if err != nil {
			return err
		}
		a, err := d.svc.AnalyzeQuiet(cmd.Context(), args[0], rng)
		if err != nil {
			return describe(err)
		}

		path, err := export.WriteFile(dir, a.Snapshot, a.Series, a.Derived, a.GeneratedAt)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %s (%d trading days) to %s\n", a.Ticker, a.Series.Len(), path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("range", "r", "", "period: 1mo, 3mo, 6mo, 1y, 2y, 5y (default from config)")
	exportCmd.Flags().String("dir", "", "output directory (default from config)")
}

// --- Chart Command ---

var chartCmd = &cobra.Command{
	Use:   "chart [ticker]",
	Short: "Render a price or volume chart as SVG",
	Example: `  stockdash chart AAPL --type line --out aapl.svg
  stockdash chart AAPL --volume > aapl-volume.svg`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rng, err := rangeFlag(cmd)
		if err != nil {
			return err
		}
		typ, _ := cmd.Flags().GetString("type")
		chartType, err := models.ParseChartType(typ)
		if err != nil {
			return err
		}
		volume, _ := cmd.Flags().GetBool("volume")
		out, _ := cmd.Flags().GetString("out")

		d, err := wire(cfg, logger)
		if err != nil {
			return err
		}
		a, err := d.svc.AnalyzeQuiet(cmd.Context(), args[0], rng)
		if err != nil {
			return describe(err)
		}

		ccfg := report.DefaultChartConfig()
		var svg string
		if volume {
			ccfg.Title = fmt.Sprintf("%s Volume (%s)", a.Ticker, rng.Label())
			svg = report.VolumeChart(a.Series.Bars, ccfg)
		} else {
			svg = report.PriceChart(a.Series, chartType, report.DefaultOverlays(a.Indicators), ccfg)
		}
		return withOutput(cmd, out, func(w io.Writer) error {
			_, err := io.WriteString(w, svg)
			return err
		})
	},
}

func init() {
	chartCmd.Flags().StringP("range", "r", "", "period: 1mo, 3mo, 6mo, 1y, 2y, 5y (default from config)")
	chartCmd.Flags().StringP("type", "t", "candlestick", "chart type: line, candlestick")
	chartCmd.Flags().Bool("volume", false, "render the volume chart instead")
	chartCmd.Flags().StringP("out", "o", "", "write to file instead of stdout")
}

// --- Compare Command ---

var compareCmd = &cobra.Command{
	Use:   "compare [ticker...]",
	Short: "Compare return and risk across several tickers",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rng, err := rangeFlag(cmd)
		if err != nil {
			return err
		}
		chartOut, _ := cmd.Flags().GetString("chart")

		d, err := wire(cfg, logger)
		if err != nil {
			return err
		}
		entries := d.svc.Compare(cmd.Context(), args, rng)
		printComparison(cmd.OutOrStdout(), entries, rng)

		if chartOut != "" {
			svg := report.ComparisonChart(analysis.Series(entries), report.DefaultChartConfig())
			if err := os.WriteFile(chartOut, []byte(svg), 0o644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nChart written to %s\n", chartOut)
		}
		return nil
	},
}

func init() {
	compareCmd.Flags().StringP("range", "r", "", "period: 1mo, 3mo, 6mo, 1y, 2y, 5y (default from config)")
	compareCmd.Flags().String("chart", "", "also write a rebased comparison chart (SVG) to this file")
}

func printComparison(w io.Writer, entries []analysis.CompareEntry, rng models.Range) {
	fmt.Fprintf(w, "Comparison over %s\n\n", rng.Label())
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKER\tPRICE\tRETURN\tVOLATILITY\tSHARPE\tMAX DD\tTREND")
	for _, e := range entries {
		if e.Analysis == nil {
			msg := "error"
			if e.Problem != nil {
				msg = e.Problem.Kind + ": " + e.Problem.Message
			}
			fmt.Fprintf(tw, "%s\t%s\n", strings.ToUpper(strings.TrimSpace(e.Input)), msg)
			continue
		}
		a := e.Analysis
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.Ticker,
			utils.FormatPrice(a.Snapshot.CurrentPrice, a.Snapshot.Currency),
			a.Derived.PeriodReturnText,
			a.Derived.VolatilityText,
			a.Derived.SharpeText,
			a.Derived.DrawdownText,
			a.Derived.Trend,
		)
	}
	tw.Flush()
}

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news [ticker]",
	Short: "Show the latest headlines for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		d, err := wire(cfg, logger)
		if err != nil {
			return err
		}
		articles, err := d.svc.News(cmd.Context(), args[0], limit)
		if err != nil {
			return describe(err)
		}
		printNews(cmd.OutOrStdout(), articles, time.Now())
		return nil
	},
}

func init() {
	newsCmd.Flags().IntP("limit", "n", 0, "number of headlines (default from config)")
}

func printNews(w io.Writer, articles []models.NewsArticle, now time.Time) {
	if len(articles) == 0 {
		fmt.Fprintln(w, "No recent headlines.")
		return
	}
	for _, a := range articles {
		fmt.Fprintf(w, "• %s\n", a.Title)
		meta := a.Source
		if !a.PublishedAt.IsZero() {
			meta += ", " + humanize.RelTime(a.PublishedAt, now, "ago", "from now")
		}
		fmt.Fprintf(w, "  %s\n", meta)
		if a.URL != "" {
			fmt.Fprintf(w, "  %s\n", a.URL)
		}
	}
}

// --- Summary Command ---

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the major US market indices",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := wire(cfg, logger)
		if err != nil {
			return err
		}
		indices, err := d.yahoo.MarketSummary(cmd.Context())
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), indices, time.Now())
		return nil
	},
}

func printSummary(w io.Writer, indices []models.IndexSnapshot, now time.Time) {
	fmt.Fprintf(w, "Market: %s\n\n", utils.MarketStatusAt(now))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tVALUE\tCHANGE\t%")
	for _, idx := range indices {
		fmt.Fprintf(tw, "%s\t%s\t%+.2f\t%s\n",
			idx.Name,
			humanize.CommafWithDigits(idx.Value, 2),
			idx.Change,
			utils.FormatPct(idx.ChangePct),
		)
	}
	tw.Flush()
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and web dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.API.Port = port
		}
		noUI, _ := cmd.Flags().GetBool("no-ui")

		d, err := wire(cfg, logger)
		if err != nil {
			return err
		}
		// Updates go to the loaded file; with none, to where Load looks first.
		srv := api.NewServer(cfg, api.Deps{
			Service:    d.svc,
			Market:     d.yahoo,
			Logger:     logger.Named("api"),
			Version:    version,
			ConfigPath: defaultConfigPath(),
		})
		if noUI {
			srv.SetServeUI(false)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "stockdash %s listening on http://%s\n", version, cfg.API.Addr())
		return srv.ListenAndServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "listen port (default from config)")
	serveCmd.Flags().Bool("no-ui", false, "serve the API only, without the dashboard")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show market status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		printStatus(cmd.OutOrStdout(), cfg, time.Now())
		return nil
	},
}

func printStatus(w io.Writer, cfg *config.Config, now time.Time) {
	fmt.Fprintln(w, "═══════════════════════════════════════")
	fmt.Fprintln(w, "  stockdash status")
	fmt.Fprintln(w, "═══════════════════════════════════════")
	fmt.Fprintf(w, "  Version:       %s (%s)\n", version, commit)
	fmt.Fprintf(w, "  Market Status: %s\n", utils.MarketStatusAt(now))
	fmt.Fprintf(w, "  Time (NY):     %s\n", now.In(utils.NewYork).Format("2006-01-02 15:04 MST"))
	fmt.Fprintln(w)

	cfgFile := config.ConfigFilePath()
	if cfgFile == "" {
		cfgFile = "(defaults)"
	}
	fmt.Fprintln(w, "  Configuration:")
	fmt.Fprintf(w, "    Config file:   %s\n", cfgFile)
	fmt.Fprintf(w, "    Default range: %s\n", cfg.Analysis.DefaultRange)
	fmt.Fprintf(w, "    Risk-free:     %s\n", utils.FormatPercent(null.FloatFrom(cfg.Analysis.RiskFreeRate*100)))
	fmt.Fprintf(w, "    Rate limit:    %d per %s\n", cfg.Provider.RateLimit, cfg.Provider.RateWindow())
	fmt.Fprintf(w, "    Export dir:    %s\n", cfg.Export.Dir)
	fmt.Fprintf(w, "    API Server:    %s\n", cfg.API.Addr())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  Secrets:")
	for _, s := range config.CheckSecrets(cfg) {
		status := "not set"
		if s.IsSet {
			status = fmt.Sprintf("set (%s: %s)", s.Source, s.Masked)
		}
		fmt.Fprintf(w, "    %-16s %s\n", s.Name+":", status)
	}
	fmt.Fprintln(w, "═══════════════════════════════════════")
}

// --- Config Command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		if path == "" {
			path = defaultConfigPath()
		}
		force, _ := cmd.Flags().GetBool("force")
		if err := config.WriteDefault(path, force); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(config.Redacted(cfg))
	},
}

func init() {
	configInitCmd.Flags().String("path", "", "where to write (default: ./config/config.yaml)")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

// --- helpers ---

func defaultConfigPath() string {
	return filepath.Join("config", "config.yaml")
}

// rangeFlag parses --range, falling back to the configured default.
func rangeFlag(cmd *cobra.Command) (models.Range, error) {
	raw, _ := cmd.Flags().GetString("range")
	if raw == "" {
		raw = cfg.Analysis.DefaultRange
	}
	return models.ParseRange(raw)
}

// withOutput runs write against the --out file, or stdout when empty.
func withOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
	return nil
}

// describe turns a pipeline error into a message with its remedy.
func describe(err error) error {
	p := analysis.Describe(err)
	if p.Remedy == "" {
		return err
	}
	return fmt.Errorf("%s\n  %s", p.Message, p.Remedy)
}
