package scraper

import (
	"testing"

	"github.com/aluiziolira/go-scrape-goodreads/models"
)

func TestDedupeByTitle(t *testing.T) {
	first := "First Author"
	second := "  first author "
	records := []models.Record{
		{Title: "Dune", Author: &first},
		{Title: "Emma"},
		{Title: "Dune", Author: &second},
		{Title: "Ulysses"},
	}

	got := DedupeByTitle(records, 0)
	if len(got) != 3 {
		t.Fatalf("records = %d, want 3", len(got))
	}
	if got[0].Author != &first {
		t.Fatalf("expected the first Dune to be kept")
	}

	clipped := DedupeByTitle(records, 2)
	if len(clipped) != 2 || clipped[1].Title != "Emma" {
		t.Fatalf("clipped = %+v", clipped)
	}
}

func TestFallbackRecords(t *testing.T) {
	all := FallbackRecords(10)
	if len(all) != 2 {
		t.Fatalf("fallback records = %d, want 2", len(all))
	}
	for _, r := range all {
		if !r.Synthetic || !r.HasTitle() || r.AvgRating == nil {
			t.Fatalf("unexpected fallback record %+v", r)
		}
	}
	if got := FallbackRecords(1); len(got) != 1 || got[0].Title != "Mock Book A" {
		t.Fatalf("clipped fallback = %+v", got)
	}
}
