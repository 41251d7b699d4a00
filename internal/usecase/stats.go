package usecase

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/turabik33/CE48-Final/internal/domain"
)

// Count is one labelled tally.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CollectionStats summarizes a raw run by source type and source name.
type CollectionStats struct {
	Total      int     `json:"total"`
	BySource   []Count `json:"by_source_type"`
	TopSources []Count `json:"top_sources"`
}

// Summarize tallies articles by source type (fixed order) and the ten
// most frequent source names.
func Summarize(articles []domain.Article) CollectionStats {
	types := map[domain.SourceType]int{}
	names := map[string]int{}
	for _, a := range articles {
		types[a.SourceType]++
		names[a.SourceName]++
	}

	stats := CollectionStats{Total: len(articles)}
	for _, st := range []domain.SourceType{domain.SourceRSS, domain.SourceAPI, domain.SourceScrape, domain.SourceScholar} {
		if n := types[st]; n > 0 {
			stats.BySource = append(stats.BySource, Count{Label: string(st), Count: n})
		}
	}
	stats.TopSources = topCounts(names, 10)
	return stats
}

// topCounts orders by count descending then label, and keeps at most limit.
func topCounts(m map[string]int, limit int) []Count {
	out := make([]Count, 0, len(m))
	for label, n := range m {
		out = append(out, Count{Label: label, Count: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}

// RunSummary renders a short plain-text digest of a collection run.
func RunSummary(result CollectionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Collection run %s\n", result.RunID)
	fmt.Fprintf(&b, "Collected %d of %d target articles\n", len(result.Articles), result.Target)
	for _, p := range result.Phases {
		switch {
		case p.Skipped:
			fmt.Fprintf(&b, "- %s: skipped\n", p.Name)
		case p.Err != nil:
			fmt.Fprintf(&b, "- %s: %d/%d (failed: %v)\n", p.Name, p.Collected, p.Quota, p.Err)
		default:
			fmt.Fprintf(&b, "- %s: %d/%d\n", p.Name, p.Collected, p.Quota)
		}
	}

	stats := Summarize(result.Articles)
	for _, c := range stats.BySource {
		fmt.Fprintf(&b, "%s: %d (%.1f%%)\n", c.Label, c.Count, percent(c.Count, stats.Total))
	}
	return strings.TrimRight(b.String(), "\n")
}
