package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-goodreads/config"
	"github.com/aluiziolira/go-scrape-goodreads/models"
	"github.com/aluiziolira/go-scrape-goodreads/pipeline"
	"github.com/aluiziolira/go-scrape-goodreads/scraper"
	"github.com/aluiziolira/go-scrape-goodreads/store"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type flags struct {
	configFile      string
	listURL         string
	target          int
	pages           int
	delayMin        time.Duration
	delayMax        time.Duration
	timeout         time.Duration
	fallback        bool
	storeDSN        string
	table           string
	loadMode        string
	migrate         bool
	maxRetries      int
	retryBackoff    time.Duration
	retryBackoffMax time.Duration
	outputFile      string
	outputFormat    string
	metricsAddr     string
	verbose         bool
}

func main() {
	defaults := config.DefaultConfig()
	var f flags

	flag.StringVar(&f.configFile, "config", "", "YAML config file applied over defaults")
	flag.StringVar(&f.listURL, "list-url", defaults.ListURL, "List URL to crawl")
	flag.IntVar(&f.target, "target", defaults.TargetCount, "Stop after this many unique records")
	flag.IntVar(&f.pages, "pages", defaults.MaxPages, "Maximum list pages to request")
	flag.DurationVar(&f.delayMin, "delay-min", defaults.DelayMin, "Minimum politeness delay before each request")
	flag.DurationVar(&f.delayMax, "delay-max", defaults.DelayMax, "Maximum politeness delay before each request")
	flag.DurationVar(&f.timeout, "timeout", defaults.Timeout, "Per-request timeout")
	flag.BoolVar(&f.fallback, "fallback", defaults.EnableFallbackOnEmpty, "Substitute synthetic records when the crawl yields nothing")
	flag.StringVar(&f.storeDSN, "store", defaults.StoreDSN, "Store DSN (postgres://, sqlite://, file:)")
	flag.StringVar(&f.table, "table", defaults.Table, "Destination table")
	flag.StringVar(&f.loadMode, "load-mode", defaults.LoadMode, "Load mode: append or replace")
	flag.BoolVar(&f.migrate, "migrate", false, "Create the destination table if it does not exist")
	flag.IntVar(&f.maxRetries, "max-retries", defaults.MaxRetries, "Retries of a crawl that failed with a transient error")
	flag.DurationVar(&f.retryBackoff, "retry-backoff", defaults.RetryBackoff, "Initial retry backoff")
	flag.DurationVar(&f.retryBackoffMax, "retry-backoff-max", defaults.RetryBackoffMax, "Maximum retry backoff")
	flag.StringVar(&f.outputFile, "output", defaults.OutputFile, "Snapshot file path (empty disables the snapshot)")
	flag.StringVar(&f.outputFormat, "format", defaults.OutputFormat, "Snapshot format: csv, json, or dual")
	flag.StringVar(&f.metricsAddr, "metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flag.BoolVar(&f.verbose, "v", defaults.Verbose, "Enable verbose logging")

	flag.Parse()

	cfg, err := buildConfig(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if err := run(cfg, f.migrate); err != nil {
		os.Exit(1)
	}
}

// buildConfig layers defaults, the optional YAML file, SCRAPER_* env and
// explicitly set flags, in increasing precedence.
func buildConfig(f flags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configFile != "" {
		loaded, err := config.LoadFile(f.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "list-url":
			cfg.ListURL = f.listURL
		case "target":
			cfg.TargetCount = f.target
		case "pages":
			cfg.MaxPages = f.pages
		case "delay-min":
			cfg.DelayMin = f.delayMin
		case "delay-max":
			cfg.DelayMax = f.delayMax
		case "timeout":
			cfg.Timeout = f.timeout
		case "fallback":
			cfg.EnableFallbackOnEmpty = f.fallback
		case "store":
			cfg.StoreDSN = f.storeDSN
		case "table":
			cfg.Table = f.table
		case "load-mode":
			cfg.LoadMode = strings.ToLower(f.loadMode)
		case "max-retries":
			cfg.MaxRetries = f.maxRetries
		case "retry-backoff":
			cfg.RetryBackoff = f.retryBackoff
		case "retry-backoff-max":
			cfg.RetryBackoffMax = f.retryBackoffMax
		case "output":
			cfg.OutputFile = f.outputFile
		case "format":
			cfg.OutputFormat = strings.ToLower(f.outputFormat)
		case "metrics-addr":
			cfg.MetricsAddr = f.metricsAddr
		case "v":
			cfg.Verbose = f.verbose
		}
	})
	return cfg, nil
}

func run(cfg *config.Config, migrate bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, abandoning in-flight work")
	}()

	crawler, err := scraper.NewCrawler(cfg)
	if err != nil {
		slog.Error("initialising crawler", slog.Any("error", err))
		return err
	}

	loader, err := store.Open(ctx, cfg.StoreDSN, store.WithTable(cfg.Table), store.WithMode(cfg.LoadMode))
	if err != nil {
		slog.Error("opening store", slog.Any("error", err))
		return err
	}
	defer func() {
		if err := loader.Close(); err != nil {
			slog.Error("close store", slog.Any("error", err))
		}
	}()

	if migrate {
		if err := loader.EnsureSchema(ctx); err != nil {
			slog.Error("ensuring schema", slog.Any("error", err))
			return err
		}
		slog.Info("schema ready", slog.String("table", cfg.Table))
	}

	opts := []pipeline.Option{pipeline.WithMetrics(crawler.Metrics)}
	if cfg.OutputFile != "" {
		writer, err := pipeline.NewWriter(cfg.OutputFormat, cfg.OutputFile)
		if err != nil {
			slog.Error("creating writer", slog.Any("error", err))
			return err
		}
		opts = append(opts, pipeline.WithWriter(writer))
	}

	metricsServer := startMetricsServer(cfg.MetricsAddr, crawler.Metrics)

	slog.Info("starting crawl",
		slog.String("list_url", cfg.ListURL),
		slog.Int("target", cfg.TargetCount),
		slog.Int("pages", cfg.MaxPages),
		slog.Bool("fallback", cfg.EnableFallbackOnEmpty),
		slog.String("load_mode", cfg.LoadMode),
	)

	report, runErr := pipeline.New(cfg, crawler, loader, opts...).Run(ctx)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(cfg, report, runErr)
	return runErr
}

func startMetricsServer(addr string, metrics *scraper.Metrics) *http.Server {
	if addr == "" || metrics == nil {
		return nil
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return srv
}

func printSummary(cfg *config.Config, report *pipeline.Report, runErr error) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Crawl summary")
	t.AppendHeader(table.Row{"Field", "Value"})

	status := "ok"
	if runErr != nil {
		status = "failed: " + runErr.Error()
	}
	t.AppendRow(table.Row{"Run ID", report.RunID})
	t.AppendRow(table.Row{"Status", status})
	t.AppendRow(table.Row{"Attempts", report.Attempts})

	if result := report.Result; result != nil {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Stop reason", result.StopReason})
		t.AppendRow(table.Row{"States", joinStates(result.States)})
		t.AppendRow(table.Row{"Pages", result.PageCount})
		t.AppendRow(table.Row{"Requests", result.RequestCount})
		t.AppendRow(table.Row{"Records", result.TotalCount})
		t.AppendRow(table.Row{"Duplicates", result.DuplicateCount})
		t.AppendRow(table.Row{"Anomalies", result.Anomalies})
		t.AppendRow(table.Row{"Fallback", result.UsedFallback})
		t.AppendRow(table.Row{"Degraded", result.Degraded()})
		if len(result.ErrorsByType) > 0 {
			t.AppendRow(table.Row{"Errors", formatCounts(result.ErrorsByType)})
		}
	}

	t.AppendSeparator()
	t.AppendRow(table.Row{"Loaded", report.Loaded})
	t.AppendRow(table.Row{"Table", cfg.Table})
	if cfg.OutputFile != "" {
		t.AppendRow(table.Row{"Snapshot", cfg.OutputFile})
	}
	t.AppendRow(table.Row{"Duration", report.Duration.Round(time.Millisecond)})

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func joinStates(states []models.CrawlState) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = string(s)
	}
	return strings.Join(parts, " > ")
}

func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
