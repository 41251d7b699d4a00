package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/turabik33/CE48-Final/internal/collector"
	"github.com/turabik33/CE48-Final/internal/config"
	"github.com/turabik33/CE48-Final/internal/dedup"
	"github.com/turabik33/CE48-Final/internal/domain"
	"github.com/turabik33/CE48-Final/internal/infrastructure/fetch"
)

const (
	scrapeName     = "scrape"
	maxSeedLinks   = 40
	htmlAcceptType = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

var (
	seedDelay    = [2]time.Duration{time.Second, 2 * time.Second}
	articleDelay = [2]time.Duration{time.Second, 3 * time.Second}

	articlePathExpr = regexp.MustCompile(`/\w+-\w+`)
	skipPathParts   = []string{"/tag/", "/category/", "/author/", "/search/", "/page/", "/feed/", "/about", "/contact"}
)

// ScrapeCollector crawls seed pages and extracts articles from the links they expose.
type ScrapeCollector struct {
	fetcher   *fetch.Fetcher
	seeds     []config.SeedConfig
	userAgent string
	extractor Extractor
	paywall   *PaywallDetector
	logger    *slog.Logger
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	jitter    func(lo, hi time.Duration) time.Duration
}

var _ collector.Collector = (*ScrapeCollector)(nil)

// NewScrapeCollector wires seeds with a fetcher. An empty userAgent keeps the
// fetcher default; a nil extractor selects GenericExtractor.
func NewScrapeCollector(f *fetch.Fetcher, seeds []config.SeedConfig, userAgent string, extractor Extractor, log *slog.Logger) *ScrapeCollector {
	if extractor == nil {
		extractor = GenericExtractor{}
	}
	return &ScrapeCollector{
		fetcher:   f,
		seeds:     seeds,
		userAgent: userAgent,
		extractor: extractor,
		paywall:   NewPaywallDetector(),
		logger:    orDiscard(log),
		now:       time.Now,
		sleep:     collector.Sleep,
		jitter:    uniformDelay,
	}
}

// Name identifies the collector inside the registry.
func (c *ScrapeCollector) Name() string {
	return scrapeName
}

// Collect visits every seed. Depth 0 treats the seed page as the only
// candidate; any other depth follows the article links found on it.
func (c *ScrapeCollector) Collect(ctx context.Context, req collector.Request) (iter.Seq[domain.Article], error) {
	if len(c.seeds) == 0 {
		return nil, fmt.Errorf("no scrape seeds configured")
	}
	ledger := req.LedgerOrNew()

	return func(yield func(domain.Article) bool) {
		collected := 0
		emit := func(article domain.Article) bool {
			if !collector.Admit(ledger, &article) {
				return true
			}
			if !yield(article) {
				return false
			}
			collected++
			return collected < req.Quota
		}

		for _, seed := range c.seeds {
			if collected >= req.Quota || ctx.Err() != nil {
				return
			}
			if err := c.sleep(ctx, c.jitter(seedDelay[0], seedDelay[1])); err != nil {
				return
			}

			seedPage, err := c.fetchPage(ctx, seed.URL)
			if err != nil {
				c.logger.Warn("seed skipped", "seed", seed.Name, "url", seed.URL, "error", err)
				continue
			}

			if seed.Depth() <= 0 {
				if article, ok := c.toArticle(seedPage); ok && !emit(article) {
					return
				}
				continue
			}

			links := discoverLinks(seedPage.Doc, seed.URL, maxSeedLinks)
			c.logger.Debug("links discovered", "seed", seed.Name, "count", len(links))

			for _, link := range links {
				if collected >= req.Quota || ctx.Err() != nil {
					return
				}
				if ledger.Contains(dedup.URLFingerprint(link)) {
					continue
				}
				if err := c.sleep(ctx, c.jitter(articleDelay[0], articleDelay[1])); err != nil {
					return
				}

				page, err := c.fetchPage(ctx, link)
				if err != nil {
					c.logger.Debug("article skipped", "url", link, "error", err)
					continue
				}
				article, ok := c.toArticle(page)
				if !ok {
					continue
				}
				if !emit(article) {
					return
				}
			}
		}
	}, nil
}

// errBlocked marks pages refused by status or hidden behind a paywall.
var errBlocked = errors.New("paywall or blocked")

func (c *ScrapeCollector) fetchPage(ctx context.Context, pageURL string) (Page, error) {
	header := http.Header{"Accept": {htmlAcceptType}}
	if c.userAgent != "" {
		header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.fetcher.Get(ctx, pageURL, header)
	if err != nil {
		if c.paywall.BlockedStatus(fetch.StatusCode(err)) {
			c.logger.Info("paywall detected", "url", pageURL, "status", fetch.StatusCode(err))
			return Page{}, fmt.Errorf("%w: %v", errBlocked, err)
		}
		return Page{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return Page{}, fmt.Errorf("parse document: %w", err)
	}
	if c.paywall.Paywalled(doc) {
		c.logger.Info("paywall detected", "url", pageURL)
		return Page{}, errBlocked
	}
	return Page{URL: pageURL, Doc: doc}, nil
}

func (c *ScrapeCollector) toArticle(page Page) (domain.Article, bool) {
	ext, ok := c.extractor.Extract(page)
	if !ok {
		c.logger.Debug("extraction failed", "url", page.URL)
		return domain.Article{}, false
	}

	now := c.now().UTC()
	return domain.Article{
		Title:       ext.Title,
		PublishedAt: collector.ParseDate(ext.PublishedAt, now),
		SourceName:  siteName(page.URL),
		SourceType:  domain.SourceScrape,
		URL:         page.URL,
		FullText:    ext.Body,
		Author:      ext.Author,
		Language:    defaultLang,
		RetrievedAt: domain.Timestamp(now),
	}, true
}

// discoverLinks returns same-site links that look like articles, in document order.
func discoverLinks(doc *goquery.Document, baseURL string, limit int) []string {
	base, err := url.Parse(baseURL)
	if err != nil || doc == nil {
		return nil
	}
	baseHost := siteHost(base.Host)

	var links []string
	seen := map[string]struct{}{}
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		full := base.ResolveReference(ref)
		if full.Scheme != "http" && full.Scheme != "https" {
			return true
		}
		if host := siteHost(full.Host); host != baseHost && !strings.HasSuffix(host, "."+baseHost) {
			return true
		}
		if !looksLikeArticle(strings.ToLower(full.Path)) {
			return true
		}

		link := full.String()
		if _, ok := seen[link]; ok {
			return true
		}
		seen[link] = struct{}{}
		links = append(links, link)
		return len(links) < limit
	})
	return links
}

// siteHost lowercases a host and drops a leading "www." label.
func siteHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

func looksLikeArticle(path string) bool {
	for _, part := range skipPathParts {
		if strings.Contains(path, part) {
			return false
		}
	}
	if len(path) <= 5 {
		return false
	}
	return articlePathExpr.MatchString(path) || strings.Contains(path, "/news/") || strings.Contains(path, "/article/")
}

// siteName turns https://www.enr.com/x into "Enr".
func siteName(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	label, _, _ := strings.Cut(host, ".")
	return titleCase(label)
}

func titleCase(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if unicode.IsLetter(r) {
			if upper {
				b.WriteRune(unicode.ToUpper(r))
			} else {
				b.WriteRune(unicode.ToLower(r))
			}
			upper = false
			continue
		}
		b.WriteRune(r)
		upper = true
	}
	return b.String()
}

func uniformDelay(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo)
}
