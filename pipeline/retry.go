package pipeline

import (
	"context"
	"time"

	"github.com/aluiziolira/go-scrape-goodreads/config"
)

// retryPolicy bounds invocation retries of a failed crawl.
type retryPolicy struct {
	maxRetries int
	base       time.Duration
	max        time.Duration
}

func newRetryPolicy(cfg *config.Config) retryPolicy {
	return retryPolicy{
		maxRetries: cfg.MaxRetries,
		base:       cfg.RetryBackoff,
		max:        cfg.RetryBackoffMax,
	}
}

// next returns the wait before retry number attempt (1-based) and whether
// that retry is allowed at all.
func (p retryPolicy) next(attempt int) (time.Duration, bool) {
	if attempt > p.maxRetries {
		return 0, false
	}
	return p.backoff(attempt), true
}

func (p retryPolicy) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := p.base
	if base <= 0 {
		return 0
	}

	delay := base * time.Duration(1<<(attempt-1))
	if p.max > 0 && (delay > p.max || delay <= 0) {
		delay = p.max
	}
	return delay
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
