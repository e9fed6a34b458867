// Package config handles configuration loading for stockdash.
// It supports YAML config files, a .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/stockdash/pkg/models"
)

// EnvPrefix prefixes every environment override, e.g. STOCKDASH_API_PORT.
const EnvPrefix = "STOCKDASH"

// Config represents the complete application configuration.
type Config struct {
	Provider ProviderConfig `mapstructure:"provider" yaml:"provider" json:"provider"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis" json:"analysis"`
	Export   ExportConfig   `mapstructure:"export"   yaml:"export"   json:"export"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"      json:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"  json:"logging"`
}

// ProviderConfig holds market data endpoints and HTTP client settings.
type ProviderConfig struct {
	ChartURL     string `mapstructure:"chart_url"      yaml:"chart_url"      json:"chart_url"`
	SummaryURL   string `mapstructure:"summary_url"    yaml:"summary_url"    json:"summary_url"`
	NewsURL      string `mapstructure:"news_url"       yaml:"news_url"       json:"news_url"`
	TimeoutSec   int    `mapstructure:"timeout_sec"    yaml:"timeout_sec"    json:"timeout_sec"`
	UserAgent    string `mapstructure:"user_agent"     yaml:"user_agent"     json:"user_agent"`
	Proxy        string `mapstructure:"proxy"          yaml:"proxy"          json:"proxy"`
	RateLimit    int    `mapstructure:"rate_limit"     yaml:"rate_limit"     json:"rate_limit"` // requests per window; 0 disables
	RateWindowMS int    `mapstructure:"rate_window_ms" yaml:"rate_window_ms" json:"rate_window_ms"`
}

// Timeout returns the per-request timeout.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSec) * time.Second
}

// RateWindow returns the rate limiter refill period.
func (p ProviderConfig) RateWindow() time.Duration {
	return time.Duration(p.RateWindowMS) * time.Millisecond
}

// AnalysisConfig holds pipeline settings.
type AnalysisConfig struct {
	DefaultRange       string  `mapstructure:"default_range"       yaml:"default_range"       json:"default_range"`
	MaxTickerLen       int     `mapstructure:"max_ticker_len"      yaml:"max_ticker_len"      json:"max_ticker_len"`
	RiskFreeRate       float64 `mapstructure:"risk_free_rate"      yaml:"risk_free_rate"      json:"risk_free_rate"`
	CompareConcurrency int     `mapstructure:"compare_concurrency" yaml:"compare_concurrency" json:"compare_concurrency"`
	NewsLimit          int     `mapstructure:"news_limit"          yaml:"news_limit"          json:"news_limit"`
}

// ExportConfig holds CSV export settings.
type ExportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host              string   `mapstructure:"host"                yaml:"host"                json:"host"`
	Port              int      `mapstructure:"port"                yaml:"port"                json:"port"`
	CORSOrigins       []string `mapstructure:"cors_origins"        yaml:"cors_origins"        json:"cors_origins"`
	RequestTimeoutSec int      `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec" json:"request_timeout_sec"`
}

// Addr returns host:port for net/http.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// RequestTimeout returns the per-request handler timeout.
func (a APIConfig) RequestTimeout() time.Duration {
	return time.Duration(a.RequestTimeoutSec) * time.Second
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text" or "json"
}

// loadedFrom remembers the file the last successful Load read, if any.
var loadedFrom string

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.stockdash/config.yaml (home directory)
//  3. /etc/stockdash/config.yaml (system)
//
// A .env file in the working directory is loaded into the environment first.
// Environment variables override config file values.
// Format: STOCKDASH_<SECTION>_<KEY>, e.g., STOCKDASH_API_PORT
func Load() (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".stockdash"))
	v.AddConfigPath("/etc/stockdash")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	loadedFrom = v.ConfigFileUsed()
	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	loadedFrom = path
	return cfg, nil
}

// Default returns the built-in configuration without reading files or env.
func Default() *Config {
	cfg, err := decode(newBareViper())
	if err != nil {
		// Defaults always decode.
		panic(err)
	}
	return cfg
}

func newBareViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func newViper() *viper.Viper {
	v := newBareViper()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	// Env values arrive as one comma-separated string.
	cfg.API.CORSOrigins = splitList(strings.Join(cfg.API.CORSOrigins, ","))
	return &cfg, nil
}

func loadDotEnv() {
	// A missing .env is normal; real env vars still apply.
	_ = godotenv.Load()
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Provider defaults
	v.SetDefault("provider.chart_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("provider.summary_url", "https://query2.finance.yahoo.com/v10/finance/quoteSummary")
	v.SetDefault("provider.news_url", "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US")
	v.SetDefault("provider.timeout_sec", 15)
	v.SetDefault("provider.user_agent", "")
	v.SetDefault("provider.proxy", "")
	v.SetDefault("provider.rate_limit", 5)
	v.SetDefault("provider.rate_window_ms", 1000)

	// Analysis defaults
	v.SetDefault("analysis.default_range", string(models.DefaultRange))
	v.SetDefault("analysis.max_ticker_len", 10)
	v.SetDefault("analysis.risk_free_rate", 0.02)
	v.SetDefault("analysis.compare_concurrency", 4)
	v.SetDefault("analysis.news_limit", 5)

	// Export defaults
	v.SetDefault("export.dir", ".")

	// API defaults
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:8080"})
	v.SetDefault("api.request_timeout_sec", 30)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.Provider.TimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("provider.timeout_sec must be positive, got %d", c.Provider.TimeoutSec))
	}
	if c.Provider.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("provider.rate_limit must not be negative, got %d", c.Provider.RateLimit))
	}
	if c.Provider.RateLimit > 0 && c.Provider.RateWindowMS <= 0 {
		errs = append(errs, fmt.Errorf("provider.rate_window_ms must be positive when rate_limit is set"))
	}
	if c.Provider.NewsURL != "" && !strings.Contains(c.Provider.NewsURL, "%s") {
		errs = append(errs, fmt.Errorf("provider.news_url must contain %%s for the ticker"))
	}
	if _, err := models.ParseRange(c.Analysis.DefaultRange); err != nil {
		errs = append(errs, fmt.Errorf("analysis.default_range: %w", err))
	}
	if c.Analysis.MaxTickerLen <= 0 || c.Analysis.MaxTickerLen > 32 {
		errs = append(errs, fmt.Errorf("analysis.max_ticker_len must be 1-32, got %d", c.Analysis.MaxTickerLen))
	}
	if c.Analysis.RiskFreeRate < 0 || c.Analysis.RiskFreeRate >= 1 {
		errs = append(errs, fmt.Errorf("analysis.risk_free_rate must be a fraction in [0, 1), got %g", c.Analysis.RiskFreeRate))
	}
	if c.Analysis.CompareConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("analysis.compare_concurrency must be positive, got %d", c.Analysis.CompareConcurrency))
	}
	if c.Analysis.NewsLimit < 0 {
		errs = append(errs, fmt.Errorf("analysis.news_limit must not be negative, got %d", c.Analysis.NewsLimit))
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port must be 1-65535, got %d", c.API.Port))
	}
	if c.API.RequestTimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("api.request_timeout_sec must be positive, got %d", c.API.RequestTimeoutSec))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// LoadedFrom returns the file the last successful Load or LoadFromFile read,
// or "" when the configuration came from defaults and environment only.
func LoadedFrom() string {
	return loadedFrom
}

// ConfigFilePath returns the file the running configuration came from, or
// the per-user default location when none was read.
func ConfigFilePath() string {
	if loadedFrom != "" {
		return loadedFrom
	}
	return filepath.Join(homeDir(), ".stockdash", "config.yaml")
}

// SaveToFile writes cfg as YAML, creating parent directories as needed.
func SaveToFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// WriteDefault writes the default configuration to path unless a file is
// already there and force is false.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", path, err)
		}
	}
	return SaveToFile(Default(), path)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
