// Package config loads and validates gboc-get configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// AppName names the XDG config directory and the default user agent.
const AppName = "gboc-get"

// Fetcher backends selectable with crawler.fetcher.
const (
	FetcherColly    = "colly"
	FetcherHeadless = "headless"
	// FetcherAuto fetches with colly and refetches headlessly when a page
	// looks rendered by script.
	FetcherAuto = "auto"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawler  CrawlerConfig  `mapstructure:"crawler"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Site     SiteConfig     `mapstructure:"site"`
	Report   ReportConfig   `mapstructure:"report"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing"`

	// File is the config file that was read, or "" when running on defaults.
	File string `mapstructure:"-"`
}

// CrawlerConfig governs the hierarchical crawl.
type CrawlerConfig struct {
	RootURL       string `mapstructure:"root_url"`
	UserAgent     string `mapstructure:"user_agent"`
	Concurrency   int    `mapstructure:"concurrency"`
	MaxInFlight   int    `mapstructure:"max_in_flight"`
	DataFile      string `mapstructure:"data_file"`
	Fetcher       string `mapstructure:"fetcher"`
	RespectRobots bool   `mapstructure:"respect_robots"`
	// RatePerSecond caps requests per host; 0 disables the cap.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	RateBurst     int     `mapstructure:"rate_burst"`
}

// HTTPConfig configures HTTP client retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxRetries       int `mapstructure:"max_retries"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
}

// HeadlessConfig configures the headless browser fetcher.
type HeadlessConfig struct {
	MaxParallel   int `mapstructure:"max_parallel"`
	NavTimeoutSec int `mapstructure:"nav_timeout_seconds"`
	SettleMs      int `mapstructure:"settle_ms"`
	// PromoteBelowBytes is the size under which a script-heavy page is
	// refetched by the auto fetcher.
	PromoteBelowBytes int `mapstructure:"promote_below_bytes"`
}

// SiteConfig controls where and how the static site is written. A non-empty
// Bucket sends the site to Cloud Storage instead of OutputDir.
type SiteConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Workers   int    `mapstructure:"workers"`
	Title     string `mapstructure:"title"`
}

// ReportConfig sets where the crawl summary goes. An empty path disables it.
type ReportConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig controls the preview server.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// TracingConfig controls OpenTelemetry spans. An empty File disables export.
type TracingConfig struct {
	File string `mapstructure:"file"`
}

// Load builds a Config from defaults, an optional file and the environment.
// With an empty path, config.yaml is looked up in the working directory and
// then in $XDG_CONFIG_HOME/gboc-get; a missing file is not an error there.
// Environment variables use the GBOC_ prefix, e.g. GBOC_SITE_OUTPUT_DIR.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GBOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, dir := range SearchPaths() {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// SearchPaths lists the directories searched for config.yaml, in order.
func SearchPaths() []string {
	return []string{".", filepath.Join(xdg.ConfigHome, AppName)}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.root_url", "https://gbo.crimp.se/")
	v.SetDefault("crawler.user_agent", AppName+"/1.0")
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.max_in_flight", 8)
	v.SetDefault("crawler.data_file", "areas.json")
	v.SetDefault("crawler.fetcher", FetcherColly)
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.rate_per_second", 5.0)
	v.SetDefault("crawler.rate_burst", 2)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 2000)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.nav_timeout_seconds", 30)
	v.SetDefault("headless.settle_ms", 500)
	v.SetDefault("headless.promote_below_bytes", 2048)
	v.SetDefault("site.output_dir", "site")
	v.SetDefault("site.bucket", "")
	v.SetDefault("site.prefix", "")
	v.SetDefault("site.workers", 8)
	v.SetDefault("site.title", "Bouldering in Gothenburg")
	v.SetDefault("report.path", "crawl-report.md")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("tracing.file", "")
}

// Validate enforces required values and reasonable limits. Every problem is
// reported, not just the first.
func (c Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.Crawler.RootURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("crawler.root_url must be an absolute http(s) URL, got %q", c.Crawler.RootURL))
	}
	if c.Crawler.Concurrency <= 0 {
		errs = append(errs, errors.New("crawler.concurrency must be > 0"))
	}
	if c.Crawler.MaxInFlight < 0 {
		errs = append(errs, errors.New("crawler.max_in_flight must be >= 0"))
	}
	if c.Crawler.DataFile == "" {
		errs = append(errs, errors.New("crawler.data_file must be set"))
	}
	switch c.Crawler.Fetcher {
	case FetcherColly, FetcherHeadless, FetcherAuto:
	default:
		errs = append(errs, fmt.Errorf("crawler.fetcher must be %q, %q or %q, got %q",
			FetcherColly, FetcherHeadless, FetcherAuto, c.Crawler.Fetcher))
	}
	if c.Crawler.RatePerSecond < 0 {
		errs = append(errs, errors.New("crawler.rate_per_second must be >= 0"))
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("http.timeout_seconds must be > 0"))
	}
	if c.HTTP.MaxRetries < 0 {
		errs = append(errs, errors.New("http.max_retries must be >= 0"))
	}
	if c.HTTP.BackoffInitialMs < 0 || c.HTTP.BackoffMaxMs < c.HTTP.BackoffInitialMs {
		errs = append(errs, errors.New("http.backoff_max_ms must be >= http.backoff_initial_ms >= 0"))
	}
	if c.Crawler.Fetcher != FetcherColly && c.Headless.MaxParallel <= 0 {
		errs = append(errs, errors.New("headless.max_parallel must be > 0 when the headless fetcher is used"))
	}
	if c.Site.Bucket == "" && c.Site.OutputDir == "" {
		errs = append(errs, errors.New("site.output_dir must be set when site.bucket is empty"))
	}
	if c.Site.Workers <= 0 {
		errs = append(errs, errors.New("site.workers must be > 0"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must be set"))
	}
	return errors.Join(errs...)
}

// HTTPTimeout is the per-request timeout.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// Backoff returns the initial and maximum retry delays.
func (c Config) Backoff() (initial, limit time.Duration) {
	return time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond,
		time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond
}

// NavTimeout is the headless navigation timeout.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}

// Settle is the headless post-load wait.
func (c Config) Settle() time.Duration {
	return time.Duration(c.Headless.SettleMs) * time.Millisecond
}
