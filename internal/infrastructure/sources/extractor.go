package sources

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/turabik33/CE48-Final/internal/collector"
)

const (
	minTitleLength = 10
	minBodyLength  = 200
	scrapeBodyCap  = 10000
)

var (
	authorClassExpr = regexp.MustCompile(`(?i)author|byline`)
	bodyClassExpr   = regexp.MustCompile(`(?i)article|content|body`)
)

// Page is a fetched HTML document ready for extraction.
type Page struct {
	URL string
	Doc *goquery.Document
}

// Extraction holds the fields pulled out of a page. PublishedAt is raw text.
type Extraction struct {
	Title       string
	PublishedAt string
	Author      string
	Body        string
}

// Extractor turns a page into article fields or reports that it cannot.
type Extractor interface {
	Extract(page Page) (Extraction, bool)
}

// GenericExtractor works on common news markup: h1 or og:title, a time
// element, author meta or byline and the paragraphs of the article container.
type GenericExtractor struct{}

var _ Extractor = GenericExtractor{}

// Extract implements Extractor.
func (GenericExtractor) Extract(page Page) (Extraction, bool) {
	doc := page.Doc
	if doc == nil {
		return Extraction{}, false
	}

	title := extractTitle(doc)
	if utf8.RuneCountInString(title) < minTitleLength {
		return Extraction{}, false
	}

	body := extractBody(doc)
	if utf8.RuneCountInString(body) < minBodyLength {
		return Extraction{}, false
	}

	return Extraction{
		Title:       title,
		PublishedAt: extractDate(doc),
		Author:      extractAuthor(doc),
		Body:        collector.Truncate(body, scrapeBodyCap),
	}, true
}

func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("h1").First().Text()); utf8.RuneCountInString(title) >= minTitleLength {
		return collapseSpace(title)
	}
	if content, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		return collapseSpace(content)
	}
	return ""
}

func extractDate(doc *goquery.Document) string {
	if t := doc.Find("time").First(); t.Length() > 0 {
		if dt, ok := t.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
			return strings.TrimSpace(dt)
		}
		if text := strings.TrimSpace(t.Text()); text != "" {
			return text
		}
	}
	if content, ok := doc.Find(`meta[property="article:published_time"]`).First().Attr("content"); ok {
		return strings.TrimSpace(content)
	}
	return ""
}

func extractAuthor(doc *goquery.Document) string {
	if content, ok := doc.Find(`meta[name="author"]`).First().Attr("content"); ok && strings.TrimSpace(content) != "" {
		return strings.TrimSpace(content)
	}

	author := ""
	doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if !authorClassExpr.MatchString(class) {
			return true
		}
		author = collapseSpace(s.Text())
		return false
	})
	return author
}

func extractBody(doc *goquery.Document) string {
	container := doc.Find("article").First()
	if container.Length() == 0 {
		container = doc.Find("div[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			class, _ := s.Attr("class")
			return bodyClassExpr.MatchString(class)
		}).First()
	}
	if container.Length() == 0 {
		return ""
	}

	container.Find("script, style, nav, footer, aside").Remove()

	var parts []string
	container.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := collapseSpace(p.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
