package scraper

import "github.com/aluiziolira/go-scrape-goodreads/models"

// FallbackRecords returns the synthetic record set used when a crawl finds
// nothing and fallback is enabled, clipped to limit. Every record is marked
// Synthetic.
func FallbackRecords(limit int) []models.Record {
	records := []models.Record{
		synthetic("Mock Book A", "Jane Example", 4.25, 120_345, 98_000, 45_000),
		synthetic("Mock Book B", "John Example", 4.10, 80_321, 65_000, 30_000),
	}
	if limit >= 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}

func synthetic(title, author string, rating float64, ratings, score, voted int64) models.Record {
	return models.Record{
		Title:       title,
		Author:      &author,
		AvgRating:   &rating,
		NumRatings:  &ratings,
		Score:       &score,
		PeopleVoted: &voted,
		Synthetic:   true,
	}
}

// DedupeByTitle keeps the first record for each title and truncates the
// result to limit. A non-positive limit disables truncation.
func DedupeByTitle(records []models.Record, limit int) []models.Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]models.Record, 0, len(records))
	for _, rec := range records {
		if limit > 0 && len(out) >= limit {
			break
		}
		if _, ok := seen[rec.Title]; ok {
			continue
		}
		seen[rec.Title] = struct{}{}
		out = append(out, rec)
	}
	return out
}
