package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/turabik33/CE48-Final/internal/collector"
	"github.com/turabik33/CE48-Final/internal/config"
	"github.com/turabik33/CE48-Final/internal/domain"
	"github.com/turabik33/CE48-Final/internal/infrastructure/fetch"
)

const (
	scholarName       = "scholar"
	scholarSourceName = "Google Scholar"
	scholarFallback   = "https://scholar.google.com/scholar"
)

var yearExpr = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// ScholarCollector queries Google Scholar through SerpAPI.
// Papers are deduplicated by URL only.
type ScholarCollector struct {
	fetcher *fetch.Fetcher
	cfg     config.ScholarConfig
	logger  *slog.Logger
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

var _ collector.Collector = (*ScholarCollector)(nil)

// NewScholarCollector wires the scholar settings with a fetcher.
func NewScholarCollector(f *fetch.Fetcher, cfg config.ScholarConfig, log *slog.Logger) *ScholarCollector {
	return &ScholarCollector{
		fetcher: f,
		cfg:     cfg,
		logger:  orDiscard(log),
		now:     time.Now,
		sleep:   collector.Sleep,
	}
}

// Name identifies the collector inside the registry.
func (s *ScholarCollector) Name() string {
	return scholarName
}

type scholarResponse struct {
	Error          string          `json:"error"`
	OrganicResults []scholarResult `json:"organic_results"`
}

type scholarResult struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Snippet   string `json:"snippet"`
	Resources []struct {
		Link string `json:"link"`
	} `json:"resources"`
	PublicationInfo struct {
		Summary string `json:"summary"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
	} `json:"publication_info"`
	InlineLinks struct {
		CitedBy struct {
			Total int `json:"total"`
		} `json:"cited_by"`
	} `json:"inline_links"`
}

// Collect walks the query list and yields papers with unseen URLs.
// A missing API key disables the collector without error.
func (s *ScholarCollector) Collect(ctx context.Context, req collector.Request) (iter.Seq[domain.Article], error) {
	if s.cfg.APIKey == "" {
		s.logger.Warn("scholar search skipped, no api key")
		return collector.Empty, nil
	}
	ledger := req.LedgerOrNew()

	return func(yield func(domain.Article) bool) {
		collected := 0
		for i, query := range s.cfg.Queries {
			if collected >= req.Quota || ctx.Err() != nil {
				return
			}
			if i > 0 {
				if err := s.sleep(ctx, s.cfg.Delay); err != nil {
					return
				}
			}

			results, err := s.search(ctx, query)
			if err != nil {
				s.logger.Warn("scholar query failed", "query", query, "error", err)
				continue
			}
			s.logger.Debug("scholar results", "query", query, "count", len(results))

			now := s.now().UTC()
			for _, result := range results {
				paper, ok := parseResult(result, query, now)
				if !ok {
					continue
				}
				if !collector.AdmitByURL(ledger, &paper) {
					continue
				}
				if !yield(paper) {
					return
				}
				collected++
				if collected >= req.Quota {
					return
				}
			}
		}
	}, nil
}

func (s *ScholarCollector) search(ctx context.Context, query string) ([]scholarResult, error) {
	searchURL, err := buildSearchURL(s.cfg.Endpoint, query, s.cfg.ResultsPerQuery, s.cfg.APIKey)
	if err != nil {
		return nil, err
	}

	resp, err := s.fetcher.Get(ctx, searchURL, nil)
	if err != nil {
		return nil, err
	}

	var payload scholarResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("serpapi: %s", payload.Error)
	}
	return payload.OrganicResults, nil
}

func parseResult(result scholarResult, query string, now time.Time) (domain.Article, bool) {
	title := strings.TrimSpace(result.Title)
	if title == "" {
		return domain.Article{}, false
	}

	link := strings.TrimSpace(result.Link)
	if link == "" && len(result.Resources) > 0 {
		link = strings.TrimSpace(result.Resources[0].Link)
	}
	if link == "" {
		link = scholarFallback + "?q=" + url.QueryEscape(title)
	}

	summary := result.PublicationInfo.Summary
	publishedAt := ""
	if year := yearExpr.FindString(summary); year != "" {
		publishedAt = year + "-01-01T00:00:00Z"
	}

	authors := make([]string, 0, len(result.PublicationInfo.Authors))
	for _, a := range result.PublicationInfo.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	return domain.Article{
		Title:           title,
		PublishedAt:     publishedAt,
		SourceName:      scholarSourceName,
		SourceType:      domain.SourceScholar,
		URL:             link,
		FullText:        strings.TrimSpace(result.Snippet),
		Author:          strings.Join(authors, ", "),
		Section:         query,
		Language:        defaultLang,
		RetrievedAt:     domain.Timestamp(now),
		CitedBy:         result.InlineLinks.CitedBy.Total,
		PublicationInfo: summary,
	}, true
}

func buildSearchURL(base, query string, num int, apiKey string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid scholar endpoint %s: %w", base, err)
	}

	q := parsed.Query()
	q.Set("engine", "google_scholar")
	q.Set("q", query)
	q.Set("api_key", apiKey)
	q.Set("num", strconv.Itoa(num))
	q.Set("start", "0")
	q.Set("hl", defaultLang)
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}
