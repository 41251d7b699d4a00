package usecase

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/turabik33/CE48-Final/internal/domain"
)

const (
	topSourceLimit   = 10
	topKeywordLimit  = 20
	topRejectLimit   = 10
	unknownLabel     = "Unknown"
	monthLabelLength = len("2006-01")
)

// BuildReport computes totals and distributions over the persisted tables.
// Percentages are relative to the accepted articles, except rejection
// causes which are relative to the rejected ones.
func BuildReport(accepted []domain.ClassifiedArticle, rejected []domain.Rejection, now time.Time) domain.Report {
	r := domain.Report{
		GeneratedAt: domain.Timestamp(now),
		Processed:   len(accepted) + len(rejected),
		Accepted:    len(accepted),
		Rejected:    len(rejected),
	}
	r.AcceptanceRate = percent(r.Accepted, r.Processed)

	var (
		categories  = map[string]int{}
		areas       = map[string]int{}
		techniques  = map[string]int{}
		stages      = map[string]int{}
		sourceTypes = map[string]int{}
		sources     = map[string]int{}
		months      = map[string]int{}
		keywords    = map[string]int{}
		causes      = map[string]int{}
	)
	for _, ca := range accepted {
		a, c := ca.Article, ca.Classification
		categories[orUnknown(c.Category)]++
		areas[orUnknown(c.CivilEngineeringArea)]++
		techniques[orUnknown(c.AITechnique)]++
		stages[orUnknown(c.ApplicationStage)]++
		sourceTypes[orUnknown(string(a.SourceType))]++
		sources[orUnknown(a.SourceName)]++
		months[monthOf(a.PublishedAt)]++

		seen := map[string]bool{}
		for _, kw := range c.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			keywords[kw]++
		}
	}
	for _, rej := range rejected {
		causes[orUnknown(rej.Reason)]++
	}

	r.Categories = tallies(categories, 0, r.Accepted)
	r.Areas = tallies(areas, 0, r.Accepted)
	r.Techniques = tallies(techniques, 0, r.Accepted)
	r.Stages = tallies(stages, 0, r.Accepted)
	r.SourceTypes = tallies(sourceTypes, 0, r.Accepted)
	r.TopSources = tallies(sources, topSourceLimit, r.Accepted)
	r.TopKeywords = tallies(keywords, topKeywordLimit, r.Accepted)
	r.RejectionCauses = tallies(causes, topRejectLimit, r.Rejected)

	r.Months = tallies(months, 0, r.Accepted)
	slices.SortFunc(r.Months, func(a, b domain.Tally) int { return cmp.Compare(a.Label, b.Label) })
	return r
}

func tallies(m map[string]int, limit, total int) []domain.Tally {
	counts := topCounts(m, limit)
	out := make([]domain.Tally, len(counts))
	for i, c := range counts {
		out[i] = domain.Tally{Label: c.Label, Count: c.Count, Percent: percent(c.Count, total)}
	}
	return out
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknownLabel
	}
	return s
}

// monthOf keeps the YYYY-MM prefix of an ISO timestamp.
func monthOf(publishedAt string) string {
	if len(publishedAt) < monthLabelLength || publishedAt[4] != '-' {
		return unknownLabel
	}
	return publishedAt[:monthLabelLength]
}
