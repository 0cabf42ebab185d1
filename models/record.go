// Package models defines data structures for the crawler and loader.
package models

import (
	"strings"
	"time"
)

// Record is one list entry extracted from a page. Optional fields are nil
// when the source row did not carry a usable value.
type Record struct {
	Title       string   `csv:"title" json:"title"`
	Author      *string  `csv:"author" json:"author"`
	AvgRating   *float64 `csv:"avg_rating" json:"avg_rating"`
	NumRatings  *int64   `csv:"num_ratings" json:"num_ratings"`
	Score       *int64   `csv:"score" json:"score"`
	PeopleVoted *int64   `csv:"people_voted" json:"people_voted"`

	// Synthetic marks fallback rows that were not scraped.
	Synthetic bool `csv:"-" json:"synthetic,omitempty"`
}

// HasTitle reports whether the record can be kept.
func (r Record) HasTitle() bool {
	return strings.TrimSpace(r.Title) != ""
}

// CrawlState is a state of the crawl loop.
type CrawlState string

const (
	StateRunning               CrawlState = "Running"
	StateStoppedByTarget       CrawlState = "StoppedByTarget"
	StateStoppedByPageLimit    CrawlState = "StoppedByPageLimit"
	StateStoppedByEmptyPage    CrawlState = "StoppedByEmptyPage"
	StateStoppedByFetchFailure CrawlState = "StoppedByFetchFailure"
	StateDone                  CrawlState = "Done"
)

// Terminal reports whether s is one of the Stopped* states.
func (s CrawlState) Terminal() bool {
	switch s {
	case StateStoppedByTarget, StateStoppedByPageLimit, StateStoppedByEmptyPage, StateStoppedByFetchFailure:
		return true
	}
	return false
}

// CrawlResult holds the overall outcome of one crawl invocation.
type CrawlResult struct {
	StartTime time.Time
	EndTime   time.Time

	StopReason CrawlState
	States     []CrawlState

	// FetchErr is the failure that ended the loop, if any.
	FetchErr error

	PageCount      int
	RequestCount   int
	TotalCount     int
	DuplicateCount int
	Anomalies      int
	FirstPageEmpty bool
	UsedFallback   bool
	ErrorsByType   map[string]int
}

// Degraded reports whether the run produced something other than real data
// with a clean stop.
func (r *CrawlResult) Degraded() bool {
	if r == nil {
		return false
	}
	return r.UsedFallback || r.StopReason == StateStoppedByFetchFailure || r.FirstPageEmpty
}
