package sources

import (
	"context"
	"iter"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/turabik33/CE48-Final/internal/domain"
	"github.com/turabik33/CE48-Final/internal/infrastructure/fetch"
)

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func noSleep(context.Context, time.Duration) error { return nil }

func fixedNow() time.Time { return testNow }

func testFetcher(srv *httptest.Server) *fetch.Fetcher {
	return fetch.New(srv.Client(), fetch.Config{Retries: 1}, nil)
}

func drain(t *testing.T, seq iter.Seq[domain.Article]) []domain.Article {
	t.Helper()
	var out []domain.Article
	for a := range seq {
		out = append(out, a)
	}
	return out
}
