package domain

import "time"

// SourceType identifies the collector family that produced an article.
type SourceType string

const (
	SourceRSS     SourceType = "RSS"
	SourceAPI     SourceType = "API"
	SourceScrape  SourceType = "SCRAPE"
	SourceScholar SourceType = "SCHOLAR"
)

// TimestampLayout is the ISO-8601 UTC form used for every persisted timestamp.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Article is a collected candidate before classification.
// Hashes and provenance helpers are internal and never serialized.
type Article struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	PublishedAt string     `json:"published_at"`
	SourceName  string     `json:"source_name"`
	SourceType  SourceType `json:"source_type"`
	URL         string     `json:"url"`
	FullText    string     `json:"full_text"`
	Author      string     `json:"author"`
	Section     string     `json:"section"`
	Language    string     `json:"language"`
	RetrievedAt string     `json:"retrieved_at"`

	CitedBy         int    `json:"cited_by,omitempty"`
	PublicationInfo string `json:"publication_info,omitempty"`

	URLHash     string `json:"-"`
	ContentHash string `json:"-"`
	FeedURL     string `json:"-"`
	APISource   string `json:"-"`
}

// Timestamp formats t the way articles store dates.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
