package sources

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/turabik33/CE48-Final/internal/collector"
	"github.com/turabik33/CE48-Final/internal/config"
	"github.com/turabik33/CE48-Final/internal/domain"
	"github.com/turabik33/CE48-Final/internal/infrastructure/fetch"
)

const (
	rssName        = "rss"
	rssSnippetCap  = 1000
	rssFeedDelay   = 500 * time.Millisecond
	defaultLang    = "en"
	feedAcceptType = "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8"
)

// RSSCollector reads configured RSS/Atom feeds one after another.
type RSSCollector struct {
	fetcher *fetch.Fetcher
	feeds   []config.FeedConfig
	logger  *slog.Logger
	delay   time.Duration
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

var _ collector.Collector = (*RSSCollector)(nil)

// NewRSSCollector wires the feed list with a fetcher.
func NewRSSCollector(f *fetch.Fetcher, feeds []config.FeedConfig, log *slog.Logger) *RSSCollector {
	return &RSSCollector{
		fetcher: f,
		feeds:   feeds,
		logger:  orDiscard(log),
		delay:   rssFeedDelay,
		now:     time.Now,
		sleep:   collector.Sleep,
	}
}

// Name identifies the collector inside the registry.
func (c *RSSCollector) Name() string {
	return rssName
}

// Collect yields unseen feed entries until the quota is met or every feed was read.
func (c *RSSCollector) Collect(ctx context.Context, req collector.Request) (iter.Seq[domain.Article], error) {
	if len(c.feeds) == 0 {
		return nil, fmt.Errorf("no rss feeds configured")
	}
	ledger := req.LedgerOrNew()

	return func(yield func(domain.Article) bool) {
		collected := 0
		for i, feed := range c.feeds {
			if collected >= req.Quota || ctx.Err() != nil {
				return
			}
			if i > 0 {
				if err := c.sleep(ctx, c.delay); err != nil {
					return
				}
			}

			parsed, err := c.fetchFeed(ctx, feed.URL)
			if err != nil {
				c.logger.Warn("feed skipped", "feed", feed.Name, "url", feed.URL, "error", err)
				continue
			}
			c.logger.Debug("feed parsed", "feed", feed.Name, "entries", len(parsed.Items))

			for _, item := range parsed.Items {
				article, ok := c.toArticle(item, feed, parsed.Title)
				if !ok {
					continue
				}
				if !collector.Admit(ledger, &article) {
					continue
				}
				if !yield(article) {
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

func (c *RSSCollector) fetchFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	header := http.Header{"Accept": {feedAcceptType}}
	resp, err := c.fetcher.Get(ctx, url, header)
	if err != nil {
		return nil, err
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	if len(parsed.Items) == 0 {
		return nil, fmt.Errorf("feed has no entries")
	}
	return parsed, nil
}

func (c *RSSCollector) toArticle(item *gofeed.Item, feed config.FeedConfig, feedTitle string) (domain.Article, bool) {
	if item == nil {
		return domain.Article{}, false
	}

	link := strings.TrimSpace(item.Link)
	if link == "" && strings.HasPrefix(item.GUID, "http") {
		link = strings.TrimSpace(item.GUID)
	}
	title := collector.StripHTML(item.Title)
	if link == "" || title == "" {
		return domain.Article{}, false
	}

	now := c.now().UTC()
	description := item.Description
	if description == "" {
		description = item.Content
	}

	sourceName := feed.Name
	if sourceName == "" {
		sourceName = feedTitle
	}

	return domain.Article{
		Title:       title,
		PublishedAt: entryDate(item, now),
		SourceName:  sourceName,
		SourceType:  domain.SourceRSS,
		URL:         link,
		FullText:    collector.Truncate(collector.StripHTML(description), rssSnippetCap),
		Author:      entryAuthor(item),
		Section:     entrySection(item),
		Language:    defaultLang,
		RetrievedAt: domain.Timestamp(now),
		FeedURL:     feed.URL,
	}, true
}

// entryDate prefers the published date, then the updated one.
func entryDate(item *gofeed.Item, now time.Time) string {
	switch {
	case item.PublishedParsed != nil:
		return domain.Timestamp(*item.PublishedParsed)
	case item.UpdatedParsed != nil:
		return domain.Timestamp(*item.UpdatedParsed)
	case item.Published != "":
		return collector.ParseDate(item.Published, now)
	default:
		return collector.ParseDate(item.Updated, now)
	}
}

func entryAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return strings.TrimSpace(item.Author.Name)
	}
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			return strings.TrimSpace(a.Name)
		}
	}
	return ""
}

func entrySection(item *gofeed.Item) string {
	if len(item.Categories) == 0 {
		return ""
	}
	return strings.TrimSpace(item.Categories[0])
}

func orDiscard(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return log
}
