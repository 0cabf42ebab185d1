package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/aluiziolira/go-scrape-goodreads/models"
)

// TransportError indicates the request for a page never produced a
// response: timeout, connection reset, DNS failure.
type TransportError struct {
	Page int
	Err  error
}

func (e TransportError) Error() string {
	return fmt.Sprintf("page %d: transport: %v", e.Page, e.Err)
}

func (e TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was the request deadline.
func (e TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// HTTPError indicates a response other than 200 OK.
type HTTPError struct {
	Page       int
	StatusCode int
}

func (e HTTPError) Error() string {
	return fmt.Sprintf("page %d: http status %d", e.Page, e.StatusCode)
}

// EmptyResultError is returned by a crawl that collected nothing while the
// fallback set is disabled. Cause is the fetch failure that ended the loop,
// if any.
type EmptyResultError struct {
	Reason models.CrawlState
	Cause  error
}

func (e EmptyResultError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("crawl produced no records (%s): %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("crawl produced no records (%s)", e.Reason)
}

func (e EmptyResultError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether a failed invocation is worth re-running by
// the invoking layer: transport failures, rate limiting, and 5xx.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var transport TransportError
	if errors.As(err, &transport) {
		return true
	}
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var transport TransportError
	if errors.As(err, &transport) {
		if transport.Timeout() {
			return "timeout"
		}
		return "connection"
	}
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusForbidden:
			return "forbidden"
		case httpErr.StatusCode == http.StatusNotFound:
			return "not_found"
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return "rate_limited"
		case httpErr.StatusCode >= http.StatusInternalServerError:
			return "server_error"
		}
		return "http_error"
	}
	return "other"
}
