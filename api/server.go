// Package api provides the HTTP API server for stockdash.
//
// It exposes endpoints for single-ticker analysis, CSV export, SVG charts,
// HTML reports, market summary, comparisons, headlines, configuration and a
// WebSocket analysis channel, and serves the embedded dashboard page.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/seenimoa/stockdash/internal/analysis"
	"github.com/seenimoa/stockdash/internal/config"
	"github.com/seenimoa/stockdash/internal/export"
	"github.com/seenimoa/stockdash/internal/logging"
	"github.com/seenimoa/stockdash/internal/report"
	"github.com/seenimoa/stockdash/pkg/models"
	"github.com/seenimoa/stockdash/pkg/utils"
	"github.com/seenimoa/stockdash/web"
)

// MarketSource supplies the index overview. datasource.Yahoo implements it.
type MarketSource interface {
	MarketSummary(ctx context.Context) ([]models.IndexSnapshot, error)
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Service *analysis.Service
	Market  MarketSource
	Logger  *zap.Logger
	Version string
	Now     func() time.Time

	// ConfigPath is where PUT /api/v1/config persists when no file was loaded.
	// Empty disables persistence.
	ConfigPath string
}

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     atomic.Pointer[config.Config]
	cfgMu   sync.Mutex // serialises config updates
	svc     *analysis.Service
	market  MarketSource
	logger  *zap.Logger
	wsHub   *WSHub
	version string
	now     func() time.Time
	serveUI bool // when true, serve the embedded dashboard at /

	configPath string
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{
		svc:     deps.Service,
		market:  deps.Market,
		logger:  deps.Logger,
		wsHub:   NewWSHub(),
		version: deps.Version,
		now:     deps.Now,
		serveUI: true,

		configPath: deps.ConfigPath,
	}
	s.cfg.Store(cfg)
	s.router = s.buildRouter()
	return s
}

// SetServeUI controls whether the embedded dashboard is served.
// Must be called before ListenAndServe.
func (s *Server) SetServeUI(enabled bool) {
	s.serveUI = enabled
	s.router = s.buildRouter()
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// config returns the running configuration. Callers must not modify it.
func (s *Server) config() *config.Config {
	return s.cfg.Load()
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.config().API.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      s.requestTimeout() + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	s.wsHub.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) requestTimeout() time.Duration {
	if d := s.config().API.RequestTimeout(); d > 0 {
		return d
	}
	return 30 * time.Second
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(s.logger))
	r.Use(middleware.Recoverer)

	origins := []string{"*"}
	if o := s.config().API.CORSOrigins; len(o) > 0 {
		origins = o
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// The socket manages its own lifetime.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.requestTimeout()))

			r.Get("/analyze/{ticker}", s.handleAnalyze)
			r.Get("/export/{ticker}", s.handleExport)
			r.Get("/chart/{ticker}", s.handleChart)
			r.Get("/chart/{ticker}/volume", s.handleVolumeChart)
			r.Get("/report/{ticker}", s.handleReport)
			r.Get("/news/{ticker}", s.handleNews)
			r.Get("/market/summary", s.handleMarketSummary)
			r.Get("/market/status", s.handleMarketStatus)
			r.Get("/compare", s.handleCompare)
			r.Get("/compare/chart", s.handleCompareChart)
			r.Get("/ranges", s.handleRanges)

			r.Get("/config", s.handleGetConfig)
			r.Put("/config", s.handleUpdateConfig)
			r.Get("/config/secrets", s.handleGetConfigSecrets)
		})
	})

	if s.serveUI {
		s.mountUI(r, web.DistFS())
	}
	return r
}

// mountUI serves the embedded dashboard. Unknown paths fall back to index.html.
func (s *Server) mountUI(r chi.Router, distFS fs.FS) {
	fileServer := http.FileServerFS(distFS)

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		rPath := strings.TrimPrefix(r.URL.Path, "/")
		if rPath == "" {
			rPath = "index.html"
		}

		f, err := distFS.Open(rPath)
		if err != nil {
			serveIndexHTML(w, distFS)
			return
		}
		f.Close()

		if strings.HasSuffix(rPath, ".html") {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		}
		fileServer.ServeHTTP(w, r)
	})
}

func serveIndexHTML(w http.ResponseWriter, distFS fs.FS) {
	data, err := fs.ReadFile(distFS, "index.html")
	if err != nil {
		http.Error(w, "dashboard not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Remedy    string `json:"remedy,omitempty"`
}

// CompareResponse is the payload of GET /api/v1/compare.
type CompareResponse struct {
	Range   models.Range            `json:"range"`
	Entries []analysis.CompareEntry `json:"entries"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":        "ok",
			"version":       s.version,
			"market_status": utils.MarketStatusAt(now),
			"time":          now.In(utils.NewYork).Format(time.RFC3339),
			"ws_clients":    s.wsHub.ClientCount(),
		},
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	rng, ok := s.rangeParam(w, r)
	if !ok {
		return
	}
	a, err := s.svc.Analyze(r.Context(), chi.URLParam(r, "ticker"), rng)
	if err != nil {
		s.writeProblem(w, err)
		return
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "analysis_complete",
		Data: map[string]any{"ticker": a.Ticker, "range": a.Series.Range},
	})
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: a})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	rng, ok := s.rangeParam(w, r)
	if !ok {
		return
	}
	a, err := s.svc.AnalyzeQuiet(r.Context(), chi.URLParam(r, "ticker"), rng)
	if err != nil {
		s.writeProblem(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(a.Ticker, a.GeneratedAt)))
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, export.Table(a.Snapshot, a.Series, a.Derived, a.GeneratedAt)); err != nil {
		s.logger.Warn("csv write failed", zap.String("ticker", a.Ticker.String()), zap.Error(err))
	}
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	rng, ok := s.rangeParam(w, r)
	if !ok {
		return
	}
	chartType, err := models.ParseChartType(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidChartType", err.Error())
		return
	}
	a, err := s.svc.AnalyzeQuiet(r.Context(), chi.URLParam(r, "ticker"), rng)
	if err != nil {
		s.writeProblem(w, err)
		return
	}
	cfg := chartConfig(r)
	var overlays []report.Overlay
	if r.URL.Query().Get("overlays") != "none" {
		overlays = report.DefaultOverlays(a.Indicators)
	}
	writeSVG(w, report.PriceChart(a.Series, chartType, overlays, cfg))
}

func (s *Server) handleVolumeChart(w http.ResponseWriter, r *http.Request) {
	rng, ok := s.rangeParam(w, r)
	if !ok {
		return
	}
	a, err := s.svc.AnalyzeQuiet(r.Context(), chi.URLParam(r, "ticker"), rng)
	if err != nil {
		s.writeProblem(w, err)
		return
	}
	cfg := chartConfig(r)
	cfg.Title = fmt.Sprintf("%s Volume (%s)", a.Ticker, a.Series.Range.Label())
	writeSVG(w, report.VolumeChart(a.Series.Bars, cfg))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rng, ok := s.rangeParam(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	format, err := report.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidFormat", err.Error())
		return
	}
	chartType, err := models.ParseChartType(q.Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidChartType", err.Error())
		return
	}

	a, err := s.svc.Analyze(r.Context(), chi.URLParam(r, "ticker"), rng)
	if err != nil {
		s.writeProblem(w, err)
		return
	}

	cfg := report.DefaultConfig()
	cfg.Format = format
	cfg.ChartType = chartType
	out, err := report.Generate(a, cfg)
	if err != nil {
		s.writeProblem(w, err)
		return
	}

	if format == report.FormatText {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(out)) //nolint:errcheck
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 || n > 50 {
			writeError(w, http.StatusBadRequest, "InvalidLimit", "limit must be between 1 and 50")
			return
		}
		limit = n
	}

	articles, err := s.svc.News(r.Context(), chi.URLParam(r, "ticker"), limit)
	if err != nil {
		s.writeProblem(w, err)
		return
	}
	if articles == nil {
		articles = []models.NewsArticle{}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: articles})
}

func (s *Server) handleMarketSummary(w http.ResponseWriter, r *http.Request) {
	if s.market == nil {
		writeError(w, http.StatusServiceUnavailable, "Unavailable", "market summary is not configured")
		return
	}
	indices, err := s.market.MarketSummary(r.Context())
	if err != nil {
		s.logger.Warn("market summary failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "NetworkError", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: indices})
}

func (s *Server) handleMarketStatus(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":      utils.MarketStatusAt(now),
			"open":        utils.IsMarketOpenAt(now),
			"trading_day": utils.IsTradingDay(now),
			"time":        now.In(utils.NewYork).Format(time.RFC3339),
		},
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	tickers, rng, ok := s.compareParams(w, r)
	if !ok {
		return
	}
	entries := s.svc.Compare(r.Context(), tickers, rng)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    CompareResponse{Range: rng, Entries: entries},
	})
}

func (s *Server) handleCompareChart(w http.ResponseWriter, r *http.Request) {
	tickers, rng, ok := s.compareParams(w, r)
	if !ok {
		return
	}
	entries := s.svc.Compare(r.Context(), tickers, rng)
	writeSVG(w, report.ComparisonChart(analysis.Series(entries), chartConfig(r)))
}

func (s *Server) handleRanges(w http.ResponseWriter, r *http.Request) {
	type rangeInfo struct {
		Code  models.Range `json:"code"`
		Label string       `json:"label"`
	}
	out := make([]rangeInfo, len(models.Ranges))
	for i, rng := range models.Ranges {
		out[i] = rangeInfo{Code: rng, Label: rng.Label()}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: out})
}

// ============================================================
// Helpers
// ============================================================

const maxCompareTickers = 10

func (s *Server) compareParams(w http.ResponseWriter, r *http.Request) ([]string, models.Range, bool) {
	rng, ok := s.rangeParam(w, r)
	if !ok {
		return nil, "", false
	}
	var tickers []string
	for _, t := range strings.Split(r.URL.Query().Get("tickers"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tickers = append(tickers, t)
		}
	}
	if len(tickers) == 0 {
		writeError(w, http.StatusBadRequest, "EmptyInput", "tickers is required, e.g. ?tickers=AAPL,MSFT")
		return nil, "", false
	}
	if len(tickers) > maxCompareTickers {
		writeError(w, http.StatusBadRequest, "TooManyTickers", fmt.Sprintf("at most %d tickers can be compared", maxCompareTickers))
		return nil, "", false
	}
	return tickers, rng, true
}

// rangeParam reads ?range=, falling back to the configured default.
func (s *Server) rangeParam(w http.ResponseWriter, r *http.Request) (models.Range, bool) {
	raw := r.URL.Query().Get("range")
	if raw == "" {
		raw = s.config().Analysis.DefaultRange
	}
	rng, err := models.ParseRange(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRange", err.Error())
		return "", false
	}
	return rng, true
}

func chartConfig(r *http.Request) report.ChartConfig {
	cfg := report.DefaultChartConfig()
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("width")); err == nil && v >= 200 && v <= 4000 {
		cfg.Width = v
	}
	if v, err := strconv.Atoi(q.Get("height")); err == nil && v >= 100 && v <= 3000 {
		cfg.Height = v
	}
	return cfg
}

func (s *Server) writeProblem(w http.ResponseWriter, err error) {
	p := analysis.Describe(err)
	if p.Status >= 500 {
		s.logger.Error("request failed", zap.String("kind", p.Kind), zap.Error(err))
	}
	writeJSON(w, p.Status, APIResponse{
		Success:   false,
		Error:     p.Message,
		ErrorKind: p.Kind,
		Remedy:    p.Remedy,
	})
}

func writeSVG(w http.ResponseWriter, svg string) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(svg)) //nolint:errcheck
}

// writeJSON encodes v before writing the status so an unencodable value
// becomes a 500 instead of a 200 with an empty body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(APIResponse{
			Success:   false,
			Error:     "failed to encode response: " + err.Error(),
			ErrorKind: "Internal",
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n')) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, APIResponse{
		Success:   false,
		Error:     msg,
		ErrorKind: kind,
	})
}
