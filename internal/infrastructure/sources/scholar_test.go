package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/turabik33/CE48-Final/internal/collector"
	"github.com/turabik33/CE48-Final/internal/config"
	"github.com/turabik33/CE48-Final/internal/dedup"
	"github.com/turabik33/CE48-Final/internal/domain"
)

func TestBuildSearchURL(t *testing.T) {
	t.Parallel()

	u, err := buildSearchURL("https://serpapi.com/search", "construction robotics", 20, "secret")
	if err != nil {
		t.Fatalf("buildSearchURL returned error: %v", err)
	}

	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if parsed.Host != "serpapi.com" || parsed.Path != "/search" {
		t.Fatalf("unexpected target: %s", u)
	}

	q := parsed.Query()
	if q.Get("engine") != "google_scholar" || q.Get("q") != "construction robotics" {
		t.Fatalf("unexpected query: %s", parsed.RawQuery)
	}
	if q.Get("num") != "20" || q.Get("start") != "0" || q.Get("hl") != "en" || q.Get("api_key") != "secret" {
		t.Fatalf("unexpected paging params: %s", parsed.RawQuery)
	}
}

func TestParseResult(t *testing.T) {
	t.Parallel()

	var r scholarResult
	r.Title = "Deep learning for crack detection"
	r.Link = "https://doi.example.org/10.1000/crack"
	r.Snippet = "We train a CNN."
	r.PublicationInfo.Summary = "A Author, B Author - Automation in Construction, 2021 - Elsevier"
	r.PublicationInfo.Authors = []struct {
		Name string `json:"name"`
	}{{Name: "A Author"}, {Name: "B Author"}}
	r.InlineLinks.CitedBy.Total = 42

	paper, ok := parseResult(r, "computer vision construction", testNow)
	if !ok {
		t.Fatalf("expected result to parse")
	}
	if paper.PublishedAt != "2021-01-01T00:00:00Z" {
		t.Fatalf("unexpected date: %s", paper.PublishedAt)
	}
	if paper.Author != "A Author, B Author" || paper.Section != "computer vision construction" {
		t.Fatalf("unexpected metadata: %+v", paper)
	}
	if paper.CitedBy != 42 || paper.PublicationInfo != r.PublicationInfo.Summary {
		t.Fatalf("unexpected scholar extras: %+v", paper)
	}
	if paper.SourceType != domain.SourceScholar || paper.SourceName != "Google Scholar" {
		t.Fatalf("unexpected provenance: %+v", paper)
	}
}

func TestParseResultFallbacks(t *testing.T) {
	t.Parallel()

	var withResource scholarResult
	withResource.Title = "BIM and AI"
	withResource.Resources = []struct {
		Link string `json:"link"`
	}{{Link: "https://files.example.org/bim.pdf"}}
	paper, _ := parseResult(withResource, "q", testNow)
	if paper.URL != "https://files.example.org/bim.pdf" {
		t.Fatalf("expected resource link, got %s", paper.URL)
	}
	if paper.PublishedAt != "" {
		t.Fatalf("expected empty date without a year, got %s", paper.PublishedAt)
	}

	var bare scholarResult
	bare.Title = "Digital twin & bridges"
	bare.PublicationInfo.Summary = "Proceedings 1850 edition"
	paper, _ = parseResult(bare, "q", testNow)
	if paper.URL != "https://scholar.google.com/scholar?q=Digital+twin+%26+bridges" {
		t.Fatalf("unexpected fallback url: %s", paper.URL)
	}
	if paper.PublishedAt != "" {
		t.Fatalf("years outside 19xx/20xx must be ignored, got %s", paper.PublishedAt)
	}

	if _, ok := parseResult(scholarResult{Link: "https://x"}, "q", testNow); ok {
		t.Fatalf("untitled results must be discarded")
	}
}

func TestScholarCollectorCollect(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("q") {
		case "broken":
			_, _ = w.Write([]byte(`{"error":"Invalid API key"}`))
		default:
			_, _ = w.Write([]byte(`{"organic_results":[
				{"title":"Paper one","link":"https://papers.example.org/one","publication_info":{"summary":"X - Journal, 2019"}},
				{"title":"Paper one","link":"https://papers.example.org/one-preprint","publication_info":{"summary":"X - arXiv, 2019"}},
				{"title":"Paper two","link":"https://papers.example.org/two?utm_source=serp"}
			]}`))
		}
	}))
	defer srv.Close()

	c := NewScholarCollector(testFetcher(srv), config.ScholarConfig{
		Endpoint:        srv.URL,
		APIKey:          "key",
		Queries:         []string{"broken", "first", "second"},
		ResultsPerQuery: 20,
	}, nil)
	c.sleep = noSleep
	c.now = fixedNow

	ledger := dedup.NewLedger()
	seq, err := c.Collect(context.Background(), collector.Request{Quota: 10, Ledger: ledger})
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	papers := drain(t, seq)
	// same title and year under two urls is kept: scholar dedups by url only
	if len(papers) != 3 {
		t.Fatalf("expected 3 papers, got %d", len(papers))
	}
	if papers[2].URL != "https://papers.example.org/two" {
		t.Fatalf("expected normalized url, got %s", papers[2].URL)
	}
	if ledger.Len() != 3 {
		t.Fatalf("expected only url fingerprints in the ledger, got %d", ledger.Len())
	}
}

func TestScholarCollectorWithoutKey(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewScholarCollector(testFetcher(srv), config.ScholarConfig{Endpoint: srv.URL, Queries: []string{"q"}}, nil)
	seq, err := c.Collect(context.Background(), collector.Request{Quota: 10})
	if err != nil {
		t.Fatalf("missing key must not be an error: %v", err)
	}
	if n := len(drain(t, seq)); n != 0 || calls.Load() != 0 {
		t.Fatalf("expected no requests without a key")
	}
}
