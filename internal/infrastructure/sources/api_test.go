package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/turabik33/CE48-Final/internal/collector"
	"github.com/turabik33/CE48-Final/internal/config"
	"github.com/turabik33/CE48-Final/internal/dedup"
	"github.com/turabik33/CE48-Final/internal/domain"
)

func newTestAPI(srv *httptest.Server, cfg config.APIsConfig) *APICollector {
	c := NewAPICollector(testFetcher(srv), cfg, nil)
	c.sleep = noSleep
	c.now = fixedNow
	return c
}

type apiStub struct {
	mu    sync.Mutex
	calls map[string]int
	srv   *httptest.Server
}

func newAPIStub(t *testing.T, perBackend int) *apiStub {
	t.Helper()
	stub := &apiStub{calls: map[string]int{}}
	stub.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		stub.calls[r.URL.Path]++
		stub.mu.Unlock()

		q := r.URL.Query().Get("q")
		switch r.URL.Path {
		case "/gnews":
			if r.URL.Query().Get("apikey") == "" || r.URL.Query().Get("lang") != "en" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if q == "fails" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			var items []map[string]any
			for i := 0; i < perBackend; i++ {
				items = append(items, map[string]any{
					"title":       fmt.Sprintf("GNews story %s %d", q, i),
					"url":         fmt.Sprintf("https://gnews.example.com/%s-%d?utm_source=gnews", q, i),
					"publishedAt": "2024-05-01T10:00:00Z",
					"description": "<b>summary</b>",
					"source":      map[string]string{"name": "Outlet"},
				})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"articles": items})
		case "/newsapi":
			if q == "bad-status" {
				_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "message": "rate limited"})
				return
			}
			var items []map[string]any
			for i := 0; i < perBackend; i++ {
				items = append(items, map[string]any{
					"title":       fmt.Sprintf("NewsAPI story %s %d", q, i),
					"url":         fmt.Sprintf("https://newsapi.example.com/%s-%d", q, i),
					"publishedAt": "2024-05-02T10:00:00Z",
					"author":      "Reporter",
					"content":     "body",
					"source":      map[string]string{"name": ""},
				})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "articles": items})
		case "/guardian":
			var results []map[string]any
			for i := 0; i < perBackend; i++ {
				results = append(results, map[string]any{
					"webUrl":             fmt.Sprintf("https://guardian.example.com/%s-%d", q, i),
					"webTitle":           fmt.Sprintf("Guardian story %s %d", q, i),
					"webPublicationDate": "2024-05-03T10:00:00Z",
					"sectionName":        "Technology",
					"fields":             map[string]string{"bodyText": "text", "byline": "Columnist"},
				})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"response": map[string]any{"status": "ok", "results": results}})
		default:
			http.NotFound(w, r)
		}
	}))
	return stub
}

func (s *apiStub) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

func (s *apiStub) config(keys ...string) config.APIsConfig {
	has := map[string]bool{}
	for _, k := range keys {
		has[k] = true
	}
	key := func(name string) string {
		if has[name] {
			return name + "-key"
		}
		return ""
	}
	return config.APIsConfig{
		GNews:    config.APIConfig{Endpoint: s.srv.URL + "/gnews", APIKey: key("gnews"), Queries: []string{"one"}, MaxResults: 100, PageSize: 10, LookbackDays: 365},
		NewsAPI:  config.APIConfig{Endpoint: s.srv.URL + "/newsapi", APIKey: key("newsapi"), Queries: []string{"one"}, MaxResults: 50, PageSize: 20, LookbackDays: 30},
		Guardian: config.APIConfig{Endpoint: s.srv.URL + "/guardian", APIKey: key("guardian"), Queries: []string{"one"}, MaxResults: 50, PageSize: 20},
	}
}

func TestAPICollectorSplitsQuota(t *testing.T) {
	t.Parallel()

	stub := newAPIStub(t, 4)
	defer stub.srv.Close()

	c := newTestAPI(stub.srv, stub.config("gnews", "newsapi", "guardian"))
	seq, err := c.Collect(context.Background(), collector.Request{Quota: 10, Ledger: dedup.NewLedger()})
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	articles := drain(t, seq)

	perBackend := map[string]int{}
	for _, a := range articles {
		perBackend[a.APISource]++
		if a.SourceType != domain.SourceAPI {
			t.Fatalf("unexpected source type %s", a.SourceType)
		}
	}
	// gnews 4 of min(100,10); newsapi min(50, 6/2)=3; guardian min(50, 3)=3
	if perBackend["gnews"] != 4 || perBackend["newsapi"] != 3 || perBackend["guardian"] != 3 {
		t.Fatalf("unexpected split: %v", perBackend)
	}
	if len(articles) != 10 {
		t.Fatalf("expected 10 articles, got %d", len(articles))
	}

	first := articles[0]
	if first.URL != "https://gnews.example.com/one-0" || first.FullText != "summary" || first.SourceName != "Outlet" {
		t.Fatalf("unexpected gnews mapping: %+v", first)
	}
	for _, a := range articles {
		switch a.APISource {
		case "newsapi":
			if a.SourceName != "Unknown" || a.Author != "Reporter" {
				t.Fatalf("unexpected newsapi mapping: %+v", a)
			}
		case "guardian":
			if a.SourceName != "The Guardian" || a.Section != "Technology" || a.Author != "Columnist" {
				t.Fatalf("unexpected guardian mapping: %+v", a)
			}
		}
	}
}

func TestAPICollectorSkipsBackendsWithoutKeys(t *testing.T) {
	t.Parallel()

	stub := newAPIStub(t, 2)
	defer stub.srv.Close()

	c := newTestAPI(stub.srv, stub.config("guardian"))
	seq, err := c.Collect(context.Background(), collector.Request{Quota: 10, Ledger: dedup.NewLedger()})
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if n := len(drain(t, seq)); n != 2 {
		t.Fatalf("expected 2 guardian articles, got %d", n)
	}
	if stub.count("/gnews") != 0 || stub.count("/newsapi") != 0 {
		t.Fatalf("backends without keys must not be called")
	}
}

func TestAPICollectorNoKeysIsNotAnError(t *testing.T) {
	t.Parallel()

	stub := newAPIStub(t, 2)
	defer stub.srv.Close()

	c := newTestAPI(stub.srv, stub.config())
	seq, err := c.Collect(context.Background(), collector.Request{Quota: 10, Ledger: dedup.NewLedger()})
	if err != nil {
		t.Fatalf("missing keys must not be an error: %v", err)
	}
	if n := len(drain(t, seq)); n != 0 {
		t.Fatalf("expected nothing, got %d", n)
	}
}

func TestAPICollectorContinuesAfterFailedQuery(t *testing.T) {
	t.Parallel()

	stub := newAPIStub(t, 2)
	defer stub.srv.Close()

	cfg := stub.config("gnews", "newsapi")
	cfg.GNews.Queries = []string{"fails", "works"}
	cfg.NewsAPI.Queries = []string{"bad-status", "fine"}

	c := newTestAPI(stub.srv, cfg)
	seq, err := c.Collect(context.Background(), collector.Request{Quota: 20, Ledger: dedup.NewLedger()})
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	perBackend := map[string]int{}
	for _, a := range drain(t, seq) {
		perBackend[a.APISource]++
	}
	if perBackend["gnews"] != 2 || perBackend["newsapi"] != 2 {
		t.Fatalf("expected failed queries to be skipped, got %v", perBackend)
	}
	if stub.count("/gnews") != 2 || stub.count("/newsapi") != 2 {
		t.Fatalf("expected every query to be attempted")
	}
}

func TestAPICollectorStopsWhenConsumerStops(t *testing.T) {
	t.Parallel()

	stub := newAPIStub(t, 5)
	defer stub.srv.Close()

	c := newTestAPI(stub.srv, stub.config("gnews", "newsapi", "guardian"))
	seq, err := c.Collect(context.Background(), collector.Request{Quota: 50, Ledger: dedup.NewLedger()})
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	taken := 0
	for range seq {
		taken++
		if taken == 2 {
			break
		}
	}
	if stub.count("/newsapi") != 0 || stub.count("/guardian") != 0 {
		t.Fatalf("backups must not run after the consumer stopped")
	}
}
