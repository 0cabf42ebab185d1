// Package parser turns list rows into records. Every field is extracted
// independently; a missing or malformed field becomes nil and never aborts
// the rest of the row.
package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-goodreads/models"
)

// RowSelector matches one entry of the list table.
const RowSelector = "table.tableList tr"

var (
	titleSelectors  = []string{"a.bookTitle span", "a.bookTitle"}
	authorSelectors = []string{"a.authorName span", "a.authorName"}
)

const (
	ratingSelector   = "span.minirating"
	scoreSelector    = `a[onclick*="score_explanation"]`
	linkSelector     = "a"
	peopleVotedToken = "people voted"
)

// ParseRow extracts a record from one list row. The returned record may have
// an empty title; dropping it is the caller's decision.
func ParseRow(row Node) models.Record {
	if row == nil {
		return models.Record{}
	}

	rec := models.Record{
		Title: firstText(row, titleSelectors),
	}
	if author := firstText(row, authorSelectors); author != "" {
		rec.Author = &author
	}

	mini := firstText(row, []string{ratingSelector})
	rec.AvgRating = ExtractFloat(mini)
	// The ratings count is the largest number in the compound rating text.
	rec.NumRatings = MaxInt(mini)

	if nodes := row.Find(scoreSelector); len(nodes) > 0 {
		rec.Score = ExtractInt(nodes[0].Text())
	}

	for _, link := range row.Find(linkSelector) {
		text := strings.ToLower(link.Text())
		if strings.Contains(text, peopleVotedToken) {
			rec.PeopleVoted = ExtractInt(text)
			break
		}
	}

	return rec
}

// ValidateRecord ensures the record carries its identity key.
func ValidateRecord(r *models.Record) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if !r.HasTitle() {
		return fmt.Errorf("record missing title")
	}
	return nil
}

func firstText(row Node, selectors []string) string {
	for _, selector := range selectors {
		for _, n := range row.Find(selector) {
			if text := n.Text(); text != "" {
				return text
			}
		}
	}
	return ""
}
