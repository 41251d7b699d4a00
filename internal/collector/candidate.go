package collector

import (
	"context"
	"html"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/microcosm-cc/bluemonday"

	"github.com/turabik33/CE48-Final/internal/dedup"
	"github.com/turabik33/CE48-Final/internal/domain"
)

var stripPolicy = bluemonday.StrictPolicy()

// Admit fills the identity fields of a and records it in the ledger.
// It reports false when the URL or the title/day pair was seen before,
// in which case the ledger is left untouched.
func Admit(ledger *dedup.Ledger, a *domain.Article) bool {
	identify(a)
	a.ContentHash = dedup.ContentFingerprint(a.Title, a.PublishedAt)
	return ledger.Accept(a.URLHash, a.ContentHash)
}

// AdmitByURL is Admit for sources deduplicated by URL alone.
func AdmitByURL(ledger *dedup.Ledger, a *domain.Article) bool {
	identify(a)
	return ledger.AcceptURL(a.URLHash)
}

func identify(a *domain.Article) {
	a.URLHash = dedup.URLFingerprint(a.URL)
	a.ID = dedup.ArticleID(a.URLHash)
	a.URL = dedup.Normalize(a.URL)
}

// ParseDate converts a source date into the article timestamp form,
// falling back to now when raw is empty or unparseable.
func ParseDate(raw string, now time.Time) string {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		if t, err := dateparse.ParseIn(raw, time.UTC); err == nil {
			return domain.Timestamp(t)
		}
	}
	return domain.Timestamp(now)
}

// StripHTML removes markup, decodes entities and collapses whitespace.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(html.UnescapeString(stripPolicy.Sanitize(s))), " ")
}

// Truncate caps s at limit runes.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
