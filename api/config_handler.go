package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/seenimoa/stockdash/internal/config"
)

// ConfigResponse is the JSON envelope returned by the config endpoints.
type ConfigResponse struct {
	Config     *config.Config `json:"config"`
	ConfigFile string         `json:"config_file"` // empty when updates are not persisted

	// RestartRequired lists changed settings that only take effect on the next start.
	RestartRequired []string `json:"restart_required,omitempty"`
}

// handleGetConfig returns the running configuration with the proxy credentials masked.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     config.Redacted(s.config()),
			ConfigFile: s.persistPath(),
		},
	})
}

// handleUpdateConfig merges a partial configuration into the running one,
// validates the result, persists it and swaps it in. Only the default range
// is read per request; every other setting is reported in RestartRequired.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var incoming config.Config
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidBody", "invalid JSON body: "+err.Error())
		return
	}

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	current := s.config()
	merged := *current
	merged.API.CORSOrigins = slices.Clone(current.API.CORSOrigins)
	mergeConfig(&merged, &incoming)
	if err := merged.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidConfig", err.Error())
		return
	}

	cfgPath := s.persistPath()
	if cfgPath != "" {
		if err := config.SaveToFile(&merged, cfgPath); err != nil {
			writeError(w, http.StatusInternalServerError, "Internal", "failed to save config: "+err.Error())
			return
		}
	}
	s.cfg.Store(&merged)

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:          config.Redacted(&merged),
			ConfigFile:      cfgPath,
			RestartRequired: restartRequired(current, &merged),
		},
	})
}

// persistPath is the file config updates are written to: the file the
// running configuration was loaded from, else the server's configured path.
func (s *Server) persistPath() string {
	if p := config.LoadedFrom(); p != "" {
		return p
	}
	return s.configPath
}

// restartRequired names the settings that differ between old and updated
// and are fixed at startup. analysis.default_range is read per request.
func restartRequired(old, updated *config.Config) []string {
	var keys []string
	add := func(changed bool, key string) {
		if changed {
			keys = append(keys, key)
		}
	}
	add(old.Provider != updated.Provider, "provider")
	add(old.Analysis.MaxTickerLen != updated.Analysis.MaxTickerLen, "analysis.max_ticker_len")
	add(old.Analysis.RiskFreeRate != updated.Analysis.RiskFreeRate, "analysis.risk_free_rate")
	add(old.Analysis.NewsLimit != updated.Analysis.NewsLimit, "analysis.news_limit")
	add(old.Analysis.CompareConcurrency != updated.Analysis.CompareConcurrency, "analysis.compare_concurrency")
	add(old.Export != updated.Export, "export")
	add(old.API.Host != updated.API.Host || old.API.Port != updated.API.Port ||
		old.API.RequestTimeoutSec != updated.API.RequestTimeoutSec ||
		!slices.Equal(old.API.CORSOrigins, updated.API.CORSOrigins), "api")
	add(old.Logging != updated.Logging, "logging")
	return keys
}

// handleGetConfigSecrets reports which sensitive settings are set, and from where.
func (s *Server) handleGetConfigSecrets(w http.ResponseWriter, r *http.Request) {
	statuses := config.CheckSecrets(s.config())

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: statuses})
}

// mergeConfig copies non-zero/non-empty values from src into dst.
func mergeConfig(dst, src *config.Config) {
	// Provider
	if src.Provider.ChartURL != "" {
		dst.Provider.ChartURL = src.Provider.ChartURL
	}
	if src.Provider.SummaryURL != "" {
		dst.Provider.SummaryURL = src.Provider.SummaryURL
	}
	if src.Provider.NewsURL != "" {
		dst.Provider.NewsURL = src.Provider.NewsURL
	}
	if src.Provider.TimeoutSec != 0 {
		dst.Provider.TimeoutSec = src.Provider.TimeoutSec
	}
	if src.Provider.UserAgent != "" {
		dst.Provider.UserAgent = src.Provider.UserAgent
	}
	// A masked proxy echoed back from GET must not replace the real one.
	if src.Provider.Proxy != "" && !strings.Contains(src.Provider.Proxy, "xxxxx") && !strings.Contains(src.Provider.Proxy, "...") {
		dst.Provider.Proxy = src.Provider.Proxy
	}
	if src.Provider.RateLimit != 0 {
		dst.Provider.RateLimit = src.Provider.RateLimit
	}
	if src.Provider.RateWindowMS != 0 {
		dst.Provider.RateWindowMS = src.Provider.RateWindowMS
	}

	// Analysis
	if src.Analysis.DefaultRange != "" {
		dst.Analysis.DefaultRange = src.Analysis.DefaultRange
	}
	if src.Analysis.MaxTickerLen != 0 {
		dst.Analysis.MaxTickerLen = src.Analysis.MaxTickerLen
	}
	if src.Analysis.RiskFreeRate != 0 {
		dst.Analysis.RiskFreeRate = src.Analysis.RiskFreeRate
	}
	if src.Analysis.CompareConcurrency != 0 {
		dst.Analysis.CompareConcurrency = src.Analysis.CompareConcurrency
	}
	if src.Analysis.NewsLimit != 0 {
		dst.Analysis.NewsLimit = src.Analysis.NewsLimit
	}

	// Export
	if src.Export.Dir != "" {
		dst.Export.Dir = src.Export.Dir
	}

	// API
	if src.API.Host != "" {
		dst.API.Host = src.API.Host
	}
	if src.API.Port != 0 {
		dst.API.Port = src.API.Port
	}
	if len(src.API.CORSOrigins) > 0 {
		dst.API.CORSOrigins = append([]string(nil), src.API.CORSOrigins...)
	}
	if src.API.RequestTimeoutSec != 0 {
		dst.API.RequestTimeoutSec = src.API.RequestTimeoutSec
	}

	// Logging
	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Logging.Format != "" {
		dst.Logging.Format = src.Logging.Format
	}
}
