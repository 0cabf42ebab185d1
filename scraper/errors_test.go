package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
)

func TestErrorTypeLabel(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil", err: nil, expected: "unknown"},
		{name: "context timeout", err: TransportError{Page: 1, Err: context.DeadlineExceeded}, expected: "timeout"},
		{name: "net timeout", err: TransportError{Page: 1, Err: &net.DNSError{IsTimeout: true}}, expected: "timeout"},
		{name: "connection", err: TransportError{Page: 1, Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}}, expected: "connection"},
		{name: "forbidden", err: HTTPError{Page: 2, StatusCode: http.StatusForbidden}, expected: "forbidden"},
		{name: "not found", err: HTTPError{Page: 2, StatusCode: http.StatusNotFound}, expected: "not_found"},
		{name: "rate limited", err: HTTPError{Page: 2, StatusCode: http.StatusTooManyRequests}, expected: "rate_limited"},
		{name: "server error", err: HTTPError{Page: 2, StatusCode: http.StatusBadGateway}, expected: "server_error"},
		{name: "redirect", err: HTTPError{Page: 2, StatusCode: http.StatusMovedPermanently}, expected: "http_error"},
		{name: "wrapped", err: fmt.Errorf("crawl: %w", HTTPError{Page: 3, StatusCode: http.StatusNotFound}), expected: "not_found"},
		{name: "other", err: errors.New("some other error"), expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(tt.err); got != tt.expected {
				t.Fatalf("errorTypeLabel(%v) = %q, want %q", tt.err, got, tt.expected)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "transport", err: TransportError{Page: 1, Err: errors.New("reset")}, want: true},
		{name: "rate limited", err: HTTPError{Page: 1, StatusCode: http.StatusTooManyRequests}, want: true},
		{name: "server error", err: HTTPError{Page: 1, StatusCode: http.StatusServiceUnavailable}, want: true},
		{name: "forbidden", err: HTTPError{Page: 1, StatusCode: http.StatusForbidden}, want: false},
		{name: "empty result over transport", err: EmptyResultError{Cause: TransportError{Page: 1, Err: errors.New("reset")}}, want: true},
		{name: "empty result without cause", err: EmptyResultError{}, want: false},
		{name: "canceled", err: context.Canceled, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Fatalf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
