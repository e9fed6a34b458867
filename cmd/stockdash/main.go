// stockdash: single-ticker stock dashboard. Fetches quote and price
// history, derives return and risk metrics, and renders charts, reports
// and CSV exports from the command line or over HTTP.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seenimoa/stockdash/internal/analysis"
	"github.com/seenimoa/stockdash/internal/config"
	"github.com/seenimoa/stockdash/internal/datasource"
	"github.com/seenimoa/stockdash/internal/infra"
	"github.com/seenimoa/stockdash/internal/logging"
	"github.com/seenimoa/stockdash/internal/metrics"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global state, set up by the root command before any subcommand runs.
var (
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stockdash",
	Short: "Stock dashboard: quotes, risk metrics, charts and CSV export",
	Long: `stockdash fetches a ticker's quote and daily price history from Yahoo
Finance, derives period return, volatility, Sharpe ratio, maximum drawdown
and trend, and renders the result as text, HTML, SVG charts or CSV.

Run "stockdash serve" for the web dashboard and JSON API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

// deps are the wired collaborators shared by the commands.
type deps struct {
	yahoo *datasource.Yahoo
	news  *datasource.News
	svc   *analysis.Service
}

// wire builds the provider clients and the analysis service from cfg.
func wire(cfg *config.Config, logger *zap.Logger) (*deps, error) {
	client, err := infra.NewHTTPClient(cfg.Provider.Timeout(), cfg.Provider.Proxy)
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}

	// One limiter for every call to the provider, charts and headlines alike.
	var limiter *infra.RateLimiter
	if cfg.Provider.RateLimit > 0 {
		limiter = infra.NewRateLimiter(cfg.Provider.RateLimit, cfg.Provider.RateWindow())
	}

	yahoo := datasource.NewYahoo(datasource.YahooOptions{
		ChartURL:   cfg.Provider.ChartURL,
		SummaryURL: cfg.Provider.SummaryURL,
		UserAgent:  cfg.Provider.UserAgent,
		Client:     client,
		Limiter:    limiter,
		Logger:     logger.Named("yahoo"),
	})
	news := datasource.NewNews(datasource.NewsOptions{
		FeedURL:   cfg.Provider.NewsURL,
		UserAgent: cfg.Provider.UserAgent,
		Client:    client,
		Limiter:   limiter,
		Logger:    logger.Named("news"),
	})

	svc := analysis.NewService(yahoo, analysis.Options{
		MaxTickerLen:       cfg.Analysis.MaxTickerLen,
		Metrics:            metrics.Options{RiskFreeRate: cfg.Analysis.RiskFreeRate},
		News:               news,
		NewsLimit:          cfg.Analysis.NewsLimit,
		CompareConcurrency: cfg.Analysis.CompareConcurrency,
		Logger:             logger.Named("analysis"),
	})
	return &deps{yahoo: yahoo, news: news, svc: svc}, nil
}
