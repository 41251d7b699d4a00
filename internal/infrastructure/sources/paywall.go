package sources

import (
	"net/http"
	"regexp"

	"github.com/PuerkitoBio/goquery"
)

// PaywallDetector decides whether a fetched page is hidden behind a paywall
// or blocked. Detection is best effort; markers are matched against class and
// id attributes.
type PaywallDetector struct {
	markers *regexp.Regexp
}

var defaultPaywallMarkers = regexp.MustCompile(`(?i)paywall|subscription-required|subscriber-only|premium-content|members-only`)

// NewPaywallDetector uses the default marker set.
func NewPaywallDetector() *PaywallDetector {
	return &PaywallDetector{markers: defaultPaywallMarkers}
}

// BlockedStatus reports whether the HTTP status means the page is not readable.
func (d *PaywallDetector) BlockedStatus(code int) bool {
	return code == http.StatusPaymentRequired || code == http.StatusForbidden
}

// Paywalled reports whether doc carries a paywall marker.
func (d *PaywallDetector) Paywalled(doc *goquery.Document) bool {
	if doc == nil {
		return false
	}
	found := false
	doc.Find("[class], [id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if class, ok := s.Attr("class"); ok && d.markers.MatchString(class) {
			found = true
			return false
		}
		if id, ok := s.Attr("id"); ok && d.markers.MatchString(id) {
			found = true
			return false
		}
		return true
	})
	return found
}
