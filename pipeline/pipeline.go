// Package pipeline chains a crawl, an optional snapshot export and the
// store load into one invocation with retry of failed crawls.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-goodreads/config"
	"github.com/aluiziolira/go-scrape-goodreads/models"
	"github.com/aluiziolira/go-scrape-goodreads/scraper"
	"github.com/aluiziolira/go-scrape-goodreads/store"
	"github.com/google/uuid"
)

// ErrNoLoader is returned by Run when the pipeline has nothing to load into.
var ErrNoLoader = errors.New("pipeline: no loader configured")

// Crawler produces the final record set of one crawl.
type Crawler interface {
	Run(ctx context.Context) ([]models.Record, *models.CrawlResult, error)
}

// Report summarises one pipeline run.
type Report struct {
	RunID    string
	Attempts int
	Records  []models.Record
	Result   *models.CrawlResult
	Loaded   int
	Duration time.Duration
}

// Pipeline runs crawl, export and load in sequence.
type Pipeline struct {
	cfg     *config.Config
	crawler Crawler
	loader  store.Loader
	writer  OutputWriter
	metrics *scraper.Metrics
	retry   retryPolicy

	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWriter exports the final record set before it is loaded. The
// pipeline closes and validates the writer.
func WithWriter(w OutputWriter) Option {
	return func(p *Pipeline) { p.writer = w }
}

// WithMetrics records retries and loaded rows.
func WithMetrics(m *scraper.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New builds a pipeline around a crawler and a loader.
func New(cfg *config.Config, crawler Crawler, loader store.Loader, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		crawler: crawler,
		loader:  loader,
		retry:   newRetryPolicy(cfg),
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the pipeline once. The report is returned even on failure
// and carries whatever was produced before the failing step.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	logger := slog.With(slog.String("run_id", report.RunID))
	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	if p.loader == nil {
		return report, ErrNoLoader
	}

	logger.Info("run started",
		slog.String("list_url", p.cfg.ListURL),
		slog.Int("target", p.cfg.TargetCount),
		slog.Int("max_pages", p.cfg.MaxPages),
	)

	records, result, err := p.crawl(ctx, logger, report)
	report.Result = result
	if err != nil {
		logger.Error("crawl failed", slog.Int("attempts", report.Attempts), slog.Any("error", err))
		return report, fmt.Errorf("crawl: %w", err)
	}
	report.Records = records

	if p.writer != nil {
		if err := p.export(records); err != nil {
			logger.Error("export failed", slog.Any("error", err))
			return report, fmt.Errorf("export: %w", err)
		}
		logger.Info("snapshot exported", slog.Int("records", len(records)))
	}

	loaded, err := p.loader.Load(ctx, records)
	if err != nil {
		logger.Error("load failed", slog.Int("records", len(records)), slog.Any("error", err))
		return report, fmt.Errorf("load: %w", err)
	}
	report.Loaded = loaded
	p.metrics.AddLoaded(loaded)

	logger.Info("run finished",
		slog.Int("loaded", loaded),
		slog.Int("attempts", report.Attempts),
		slog.String("stop_reason", string(result.StopReason)),
		slog.Bool("degraded", result.Degraded()),
	)
	return report, nil
}

func (p *Pipeline) crawl(ctx context.Context, logger *slog.Logger, report *Report) ([]models.Record, *models.CrawlResult, error) {
	for attempt := 1; ; attempt++ {
		report.Attempts = attempt
		records, result, err := p.crawler.Run(ctx)
		if err == nil {
			return records, result, nil
		}
		if !scraper.IsRetryable(err) || ctx.Err() != nil {
			return nil, result, err
		}

		delay, ok := p.retry.next(attempt)
		if !ok {
			return nil, result, err
		}
		p.metrics.IncRetries()
		logger.Warn("crawl failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.Any("error", err),
		)
		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return nil, result, sleepErr
		}
	}
}

func (p *Pipeline) export(records []models.Record) error {
	if err := p.writer.Write(records); err != nil {
		p.writer.Close()
		return err
	}
	if err := p.writer.Close(); err != nil {
		return err
	}
	return p.writer.Validate()
}
