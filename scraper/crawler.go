package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-goodreads/config"
	"github.com/aluiziolira/go-scrape-goodreads/models"
	"github.com/aluiziolira/go-scrape-goodreads/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Fetcher returns the markup of one list page.
type Fetcher interface {
	Fetch(ctx context.Context, page int) (string, error)
}

// Crawler walks the list page by page until one of its stop conditions
// holds. Each Run owns its own state; runs must not share a Fetcher.
type Crawler struct {
	cfg     *config.Config
	fetcher Fetcher
	Metrics *Metrics
}

// NewCrawler builds a crawler backed by a PageFetcher.
func NewCrawler(cfg *config.Config) (*Crawler, error) {
	metrics := NewMetrics()
	fetcher, err := NewPageFetcher(cfg, metrics)
	if err != nil {
		return nil, err
	}
	return NewCrawlerWithFetcher(cfg, fetcher, metrics), nil
}

// NewCrawlerWithFetcher builds a crawler around an existing fetcher.
func NewCrawlerWithFetcher(cfg *config.Config, fetcher Fetcher, metrics *Metrics) *Crawler {
	return &Crawler{cfg: cfg, fetcher: fetcher, Metrics: metrics}
}

// Crawl runs one crawl with a fresh crawler.
func Crawl(ctx context.Context, cfg *config.Config) ([]models.Record, *models.CrawlResult, error) {
	c, err := NewCrawler(cfg)
	if err != nil {
		return nil, nil, err
	}
	return c.Run(ctx)
}

type crawlState struct {
	seen      *lru.Cache[string, struct{}]
	collected []models.Record
	page      int
	result    *models.CrawlResult
}

func (s *crawlState) transition(state models.CrawlState) {
	s.result.States = append(s.result.States, state)
	if state.Terminal() {
		s.result.StopReason = state
	}
}

// Run executes the crawl loop and returns the final ordered record set.
// The returned result is populated even when an error is returned.
func (c *Crawler) Run(ctx context.Context) ([]models.Record, *models.CrawlResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// Kept titles never exceed TargetCount, so the cache never evicts.
	seen, err := lru.New[string, struct{}](c.cfg.TargetCount)
	if err != nil {
		return nil, nil, fmt.Errorf("create title set: %w", err)
	}
	st := &crawlState{
		seen: seen,
		page: 1,
		result: &models.CrawlResult{
			StartTime:    time.Now(),
			ErrorsByType: make(map[string]int),
		},
	}
	st.transition(models.StateRunning)

	for {
		if err := ctx.Err(); err != nil {
			st.result.EndTime = time.Now()
			return nil, st.result, err
		}
		if reason := c.limitReached(st); reason != "" {
			st.transition(reason)
			break
		}
		if st.page > 1 {
			st.transition(models.StateRunning)
		}

		markup, err := c.fetcher.Fetch(ctx, st.page)
		st.result.RequestCount++
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				st.result.EndTime = time.Now()
				return nil, st.result, ctxErr
			}
			label := errorTypeLabel(err)
			st.result.ErrorsByType[label]++
			c.Metrics.IncError(label)
			slog.Warn("fetch failed, stopping crawl",
				slog.Int("page", st.page),
				slog.String("category", label),
				slog.Any("error", err),
			)
			st.result.FetchErr = err
			st.transition(models.StateStoppedByFetchFailure)
			break
		}
		st.result.PageCount++

		added := c.collectPage(st, markup)
		slog.Info("page parsed",
			slog.Int("page", st.page),
			slog.Int("new_rows", added),
			slog.Int("total", len(st.collected)),
		)
		if added == 0 {
			if st.page == 1 {
				st.result.FirstPageEmpty = true
				slog.Warn("first page yielded no rows; check selectors or blocking", slog.Int("page", st.page))
			} else {
				slog.Info("no new rows on page; stopping early", slog.Int("page", st.page))
			}
			st.transition(models.StateStoppedByEmptyPage)
			break
		}
		st.page++
	}

	return c.finish(st)
}

// limitReached evaluates the target and page limit rules, in that order.
func (c *Crawler) limitReached(st *crawlState) models.CrawlState {
	if len(st.collected) >= c.cfg.TargetCount {
		return models.StateStoppedByTarget
	}
	if st.page > c.cfg.MaxPages {
		return models.StateStoppedByPageLimit
	}
	return ""
}

// collectPage parses markup and appends unseen titled rows in row order,
// stopping once the target is reached. It returns the number appended.
func (c *Crawler) collectPage(st *crawlState, markup string) int {
	rows, err := parser.Rows(strings.NewReader(markup))
	if err != nil {
		slog.Warn("page markup could not be parsed", slog.Int("page", st.page), slog.Any("error", err))
		return 0
	}

	added := 0
	for _, row := range rows {
		if len(st.collected) >= c.cfg.TargetCount {
			break
		}
		rec := parser.ParseRow(row)
		if err := parser.ValidateRecord(&rec); err != nil {
			st.result.Anomalies++
			c.Metrics.IncAnomaly()
			continue
		}
		if st.seen.Contains(rec.Title) {
			st.result.DuplicateCount++
			continue
		}
		st.seen.Add(rec.Title, struct{}{})
		st.collected = append(st.collected, rec)
		c.Metrics.IncItems()
		added++
	}
	return added
}

func (c *Crawler) finish(st *crawlState) ([]models.Record, *models.CrawlResult, error) {
	result := st.result
	c.Metrics.IncStop(string(result.StopReason))

	records := st.collected
	if len(records) == 0 {
		if !c.cfg.EnableFallbackOnEmpty {
			result.EndTime = time.Now()
			slog.Error("crawl produced no records and fallback is disabled",
				slog.String("stop_reason", string(result.StopReason)),
			)
			return nil, result, EmptyResultError{Reason: result.StopReason, Cause: result.FetchErr}
		}
		records = FallbackRecords(c.cfg.TargetCount)
		result.UsedFallback = true
		c.Metrics.IncFallback()
		slog.Warn("no rows parsed; substituting synthetic fallback records",
			slog.Int("records", len(records)),
			slog.String("stop_reason", string(result.StopReason)),
		)
	}

	records = DedupeByTitle(records, c.cfg.TargetCount)
	result.TotalCount = len(records)
	st.transition(models.StateDone)
	result.EndTime = time.Now()

	slog.Info("crawl finished",
		slog.String("stop_reason", string(result.StopReason)),
		slog.Int("pages", result.PageCount),
		slog.Int("records", result.TotalCount),
		slog.Int("anomalies", result.Anomalies),
		slog.Int("duplicates", result.DuplicateCount),
		slog.Bool("fallback", result.UsedFallback),
		slog.Bool("degraded", result.Degraded()),
	)
	return records, result, nil
}
