package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/aluiziolira/go-scrape-goodreads/config"
	"github.com/gocolly/colly/v2"
)

const (
	ctxKeyStatus = "status"
	ctxKeyBody   = "body"
)

// PageFetcher issues one polite GET per list page. It is owned by a single
// crawl and is not safe for concurrent use.
type PageFetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	metrics   *Metrics

	// sleep waits for d or until ctx is done.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPageFetcher builds a synchronous collector configured from cfg.
func NewPageFetcher(cfg *config.Config, metrics *Metrics) (*PageFetcher, error) {
	parsed, err := url.Parse(cfg.ListURL)
	if err != nil {
		return nil, fmt.Errorf("parse list url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("list url must include a host")
	}

	headers := map[string]string{}
	if cfg.AcceptLanguage != "" {
		headers["Accept-Language"] = cfg.AcceptLanguage
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.Headers(headers),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxKeyStatus, r.StatusCode)
		r.Ctx.Put(ctxKeyBody, r.Body)
	})

	return &PageFetcher{
		cfg:       cfg,
		collector: collector,
		metrics:   metrics,
		sleep:     sleepContext,
	}, nil
}

// SetTransport replaces the HTTP transport used by the collector.
func (f *PageFetcher) SetTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// Fetch waits the politeness delay and then requests the given page. A
// non-200 status yields HTTPError, a request that never produced a
// response yields TransportError. Cancellation returns the context error.
func (f *PageFetcher) Fetch(ctx context.Context, page int) (string, error) {
	if err := f.Wait(ctx); err != nil {
		return "", err
	}
	return f.Get(ctx, page)
}

// Wait sleeps for a duration drawn uniformly from [DelayMin, DelayMax].
func (f *PageFetcher) Wait(ctx context.Context) error {
	d := f.Delay()
	if d > 0 {
		slog.Debug("politeness delay", slog.Duration("delay", d))
	}
	return f.sleep(ctx, d)
}

// Delay draws the next politeness delay.
func (f *PageFetcher) Delay() time.Duration {
	lo, hi := f.cfg.DelayMin, f.cfg.DelayMax
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// Get issues the request for page without any delay.
func (f *PageFetcher) Get(ctx context.Context, page int) (string, error) {
	pageURL, err := f.cfg.PageURL(page)
	if err != nil {
		return "", err
	}

	reqCtx := colly.NewContext()
	f.collector.Context = ctx

	start := time.Now()
	err = f.collector.Request(http.MethodGet, pageURL, nil, reqCtx, nil)
	f.metrics.ObserveDuration(time.Since(start))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		f.metrics.IncRequest("transport_error")
		return "", TransportError{Page: page, Err: err}
	}

	status, _ := reqCtx.GetAny(ctxKeyStatus).(int)
	if status == 0 {
		f.metrics.IncRequest("transport_error")
		return "", TransportError{Page: page, Err: errors.New("no response received")}
	}
	if status != http.StatusOK {
		f.metrics.IncRequest("http_error")
		return "", HTTPError{Page: page, StatusCode: status}
	}

	body, _ := reqCtx.GetAny(ctxKeyBody).([]byte)
	f.metrics.IncRequest("success")
	slog.Debug("page fetched",
		slog.Int("page", page),
		slog.Int("bytes", len(body)),
		slog.String("url", pageURL),
	)
	return string(body), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
