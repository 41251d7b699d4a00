package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/turabik33/CE48-Final/internal/collector"
	"github.com/turabik33/CE48-Final/internal/config"
	"github.com/turabik33/CE48-Final/internal/dedup"
	"github.com/turabik33/CE48-Final/internal/domain"
	"github.com/turabik33/CE48-Final/internal/infrastructure/fetch"
)

const (
	apiName         = "api"
	apiTextCap      = 5000
	guardianName    = "The Guardian"
	unknownSource   = "Unknown"
	guardianFields  = "headline,bodyText,byline,publication"
	newsAPIOKStatus = "ok"
)

// newsBackend is one search API tried by the API collector.
type newsBackend struct {
	name   string
	cfg    config.APIConfig
	quota  func(remaining int) int
	search func(ctx context.Context, query string) ([]domain.Article, error)
}

// APICollector queries the news search APIs in priority order:
// GNews first, then NewsAPI and the Guardian as backups.
type APICollector struct {
	fetcher *fetch.Fetcher
	cfg     config.APIsConfig
	logger  *slog.Logger
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

var _ collector.Collector = (*APICollector)(nil)

// NewAPICollector wires the API settings with a fetcher.
func NewAPICollector(f *fetch.Fetcher, cfg config.APIsConfig, log *slog.Logger) *APICollector {
	return &APICollector{
		fetcher: f,
		cfg:     cfg,
		logger:  orDiscard(log),
		now:     time.Now,
		sleep:   collector.Sleep,
	}
}

// Name identifies the collector inside the registry.
func (c *APICollector) Name() string {
	return apiName
}

// Collect runs every backend whose key is configured. The primary backend gets
// up to its ceiling, the first backup half of what is left, the second backup
// whatever remains, each capped by its own ceiling.
func (c *APICollector) Collect(ctx context.Context, req collector.Request) (iter.Seq[domain.Article], error) {
	ledger := req.LedgerOrNew()
	backends := c.backends()

	return func(yield func(domain.Article) bool) {
		collected := 0
		for _, b := range backends {
			remaining := req.Quota - collected
			if remaining <= 0 || ctx.Err() != nil {
				return
			}
			if b.cfg.APIKey == "" {
				c.logger.Info("api backend skipped, no key", "backend", b.name)
				continue
			}

			quota := b.quota(remaining)
			if quota <= 0 {
				continue
			}
			c.logger.Debug("api backend start", "backend", b.name, "quota", quota)

			got, ok := c.runBackend(ctx, b, quota, ledger, yield)
			collected += got
			c.logger.Info("api backend done", "backend", b.name, "collected", got)
			if !ok {
				return
			}
		}
	}, nil
}

// runBackend reports how many articles were yielded and whether the consumer
// still wants more.
func (c *APICollector) runBackend(ctx context.Context, b newsBackend, quota int, ledger *dedup.Ledger, yield func(domain.Article) bool) (int, bool) {
	collected := 0
	for i, query := range b.cfg.Queries {
		if collected >= quota || ctx.Err() != nil {
			break
		}
		if i > 0 {
			if err := c.sleep(ctx, b.cfg.Delay); err != nil {
				break
			}
		}

		articles, err := b.search(ctx, query)
		if err != nil {
			c.logger.Warn("api query failed", "backend", b.name, "query", query, "error", err)
			continue
		}

		for _, article := range articles {
			if article.URL == "" || article.Title == "" {
				continue
			}
			if !collector.Admit(ledger, &article) {
				continue
			}
			if !yield(article) {
				return collected, false
			}
			collected++
			if collected >= quota {
				break
			}
		}
	}
	return collected, true
}

func (c *APICollector) backends() []newsBackend {
	return []newsBackend{
		{
			name:   "gnews",
			cfg:    c.cfg.GNews,
			quota:  func(remaining int) int { return min(c.cfg.GNews.MaxResults, remaining) },
			search: c.searchGNews,
		},
		{
			name:   "newsapi",
			cfg:    c.cfg.NewsAPI,
			quota:  func(remaining int) int { return min(c.cfg.NewsAPI.MaxResults, remaining/2) },
			search: c.searchNewsAPI,
		},
		{
			name:   "guardian",
			cfg:    c.cfg.Guardian,
			quota:  func(remaining int) int { return min(c.cfg.Guardian.MaxResults, remaining) },
			search: c.searchGuardian,
		},
	}
}

type gnewsResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (c *APICollector) searchGNews(ctx context.Context, query string) ([]domain.Article, error) {
	cfg := c.cfg.GNews
	now := c.now().UTC()
	params := url.Values{}
	params.Set("q", query)
	params.Set("lang", defaultLang)
	params.Set("max", strconv.Itoa(cfg.PageSize))
	params.Set("from", now.AddDate(0, 0, -cfg.LookbackDays).Format(time.RFC3339))
	params.Set("to", now.Format(time.RFC3339))
	params.Set("sortby", "relevance")
	params.Set("apikey", cfg.APIKey)

	var payload gnewsResponse
	if err := c.getJSON(ctx, cfg.Endpoint, params, &payload); err != nil {
		return nil, err
	}

	articles := make([]domain.Article, 0, len(payload.Articles))
	for _, item := range payload.Articles {
		text := item.Content
		if text == "" {
			text = item.Description
		}
		articles = append(articles, domain.Article{
			Title:       strings.TrimSpace(item.Title),
			PublishedAt: collector.ParseDate(item.PublishedAt, now),
			SourceName:  nonEmpty(item.Source.Name, unknownSource),
			SourceType:  domain.SourceAPI,
			URL:         strings.TrimSpace(item.URL),
			FullText:    collector.Truncate(collector.StripHTML(text), apiTextCap),
			Language:    defaultLang,
			RetrievedAt: domain.Timestamp(now),
			APISource:   "gnews",
		})
	}
	return articles, nil
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		URL         string `json:"url"`
		Author      string `json:"author"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (c *APICollector) searchNewsAPI(ctx context.Context, query string) ([]domain.Article, error) {
	cfg := c.cfg.NewsAPI
	now := c.now().UTC()
	params := url.Values{}
	params.Set("q", query)
	params.Set("language", defaultLang)
	params.Set("sortBy", "relevance")
	params.Set("from", now.AddDate(0, 0, -cfg.LookbackDays).Format(time.DateOnly))
	params.Set("pageSize", strconv.Itoa(cfg.PageSize))
	params.Set("apiKey", cfg.APIKey)

	var payload newsAPIResponse
	if err := c.getJSON(ctx, cfg.Endpoint, params, &payload); err != nil {
		return nil, err
	}
	if payload.Status != newsAPIOKStatus {
		return nil, fmt.Errorf("newsapi status %q: %s", payload.Status, payload.Message)
	}

	articles := make([]domain.Article, 0, len(payload.Articles))
	for _, item := range payload.Articles {
		text := item.Content
		if text == "" {
			text = item.Description
		}
		articles = append(articles, domain.Article{
			Title:       strings.TrimSpace(item.Title),
			PublishedAt: collector.ParseDate(item.PublishedAt, now),
			SourceName:  nonEmpty(item.Source.Name, unknownSource),
			SourceType:  domain.SourceAPI,
			URL:         strings.TrimSpace(item.URL),
			FullText:    collector.Truncate(collector.StripHTML(text), apiTextCap),
			Author:      strings.TrimSpace(item.Author),
			Language:    defaultLang,
			RetrievedAt: domain.Timestamp(now),
			APISource:   "newsapi",
		})
	}
	return articles, nil
}

type guardianResponse struct {
	Response struct {
		Status  string `json:"status"`
		Results []struct {
			WebURL             string `json:"webUrl"`
			WebTitle           string `json:"webTitle"`
			WebPublicationDate string `json:"webPublicationDate"`
			SectionName        string `json:"sectionName"`
			Fields             struct {
				Headline string `json:"headline"`
				BodyText string `json:"bodyText"`
				Byline   string `json:"byline"`
			} `json:"fields"`
		} `json:"results"`
	} `json:"response"`
}

func (c *APICollector) searchGuardian(ctx context.Context, query string) ([]domain.Article, error) {
	cfg := c.cfg.Guardian
	now := c.now().UTC()
	params := url.Values{}
	params.Set("q", query)
	params.Set("api-key", cfg.APIKey)
	params.Set("show-fields", guardianFields)
	params.Set("page-size", strconv.Itoa(cfg.PageSize))
	params.Set("order-by", "relevance")

	var payload guardianResponse
	if err := c.getJSON(ctx, cfg.Endpoint, params, &payload); err != nil {
		return nil, err
	}

	results := payload.Response.Results
	articles := make([]domain.Article, 0, len(results))
	for _, item := range results {
		articles = append(articles, domain.Article{
			Title:       strings.TrimSpace(nonEmpty(item.Fields.Headline, item.WebTitle)),
			PublishedAt: collector.ParseDate(item.WebPublicationDate, now),
			SourceName:  guardianName,
			SourceType:  domain.SourceAPI,
			URL:         strings.TrimSpace(item.WebURL),
			FullText:    collector.Truncate(item.Fields.BodyText, apiTextCap),
			Author:      strings.TrimSpace(item.Fields.Byline),
			Section:     item.SectionName,
			Language:    defaultLang,
			RetrievedAt: domain.Timestamp(now),
			APISource:   "guardian",
		})
	}
	return articles, nil
}

func (c *APICollector) getJSON(ctx context.Context, endpoint string, params url.Values, v any) error {
	target, err := withQuery(endpoint, params)
	if err != nil {
		return err
	}
	resp, err := c.fetcher.Get(ctx, target, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func withQuery(endpoint string, params url.Values) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %s: %w", endpoint, err)
	}
	query := parsed.Query()
	for key, values := range params {
		query[key] = values
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
