package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Load modes for the store table.
const (
	LoadModeAppend  = "append"
	LoadModeReplace = "replace"
)

// Config holds crawl and load configuration. A value is passed explicitly
// into every operation; there are no package-level defaults to mutate.
type Config struct {
	ListURL               string        `yaml:"list_url"`
	PageParam             string        `yaml:"page_param"`
	TargetCount           int           `yaml:"target_count"`
	MaxPages              int           `yaml:"max_pages"`
	DelayMin              time.Duration `yaml:"delay_min"`
	DelayMax              time.Duration `yaml:"delay_max"`
	Timeout               time.Duration `yaml:"timeout"`
	EnableFallbackOnEmpty bool          `yaml:"enable_fallback_on_empty"`
	UserAgent             string        `yaml:"user_agent"`
	AcceptLanguage        string        `yaml:"accept_language"`

	StoreDSN string `yaml:"store_dsn"`
	Table    string `yaml:"table"`
	LoadMode string `yaml:"load_mode"` // append or replace

	MaxRetries      int           `yaml:"max_retries"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	RetryBackoffMax time.Duration `yaml:"retry_backoff_max"`

	OutputFile   string `yaml:"output_file"`
	OutputFormat string `yaml:"output_format"` // csv, json, or dual
	MetricsAddr  string `yaml:"metrics_addr"`
	Verbose      bool   `yaml:"verbose"`
}

// DefaultConfig returns conservative defaults for the Goodreads list.
func DefaultConfig() *Config {
	return &Config{
		ListURL:               "https://www.goodreads.com/list/show/1.Best_Books_Ever",
		PageParam:             "page",
		TargetCount:           1000,
		MaxPages:              100,
		DelayMin:              800 * time.Millisecond,
		DelayMax:              2 * time.Second,
		Timeout:               25 * time.Second,
		EnableFallbackOnEmpty: false,
		UserAgent:             "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119 Safari/537.36",
		AcceptLanguage:        "en-US,en;q=0.9",
		StoreDSN:              "sqlite://output/goodreads.db",
		Table:                 "goodreads_books",
		LoadMode:              LoadModeAppend,
		MaxRetries:            1,
		RetryBackoff:          30 * time.Second,
		RetryBackoffMax:       5 * time.Minute,
		OutputFile:            "",
		OutputFormat:          "csv",
		MetricsAddr:           "",
		Verbose:               false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.ListURL == "" {
		return fmt.Errorf("list URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.ListURL)
	if err != nil {
		return fmt.Errorf("invalid list URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("list URL must include a host")
	}
	if c.PageParam == "" {
		return fmt.Errorf("page param cannot be empty")
	}

	if c.TargetCount <= 0 {
		return fmt.Errorf("target count must be positive")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.DelayMin < 0 || c.DelayMax < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.DelayMin > c.DelayMax {
		return fmt.Errorf("delay min (%s) cannot exceed delay max (%s)", c.DelayMin, c.DelayMax)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	if c.StoreDSN == "" {
		return fmt.Errorf("store DSN cannot be empty")
	}
	if c.Table == "" {
		return fmt.Errorf("table cannot be empty")
	}
	if c.LoadMode != LoadModeAppend && c.LoadMode != LoadModeReplace {
		return fmt.Errorf("load mode must be append or replace")
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}

	format := strings.ToLower(c.OutputFormat)
	if format != "csv" && format != "json" && format != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}

	return nil
}

// PageURL returns the list URL for the given page number, keeping any query
// parameters already present on ListURL.
func (c *Config) PageURL(page int) (string, error) {
	u, err := url.Parse(c.ListURL)
	if err != nil {
		return "", fmt.Errorf("parse list url: %w", err)
	}
	q := u.Query()
	q.Set(c.PageParam, fmt.Sprintf("%d", page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
