// Package dedup canonicalizes article identities and keeps the per-run ledger
// of fingerprints that every collector consults before yielding.
package dedup

import (
	"net/url"
	"strings"
)

var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"ref":          {},
	"source":       {},
}

// Normalize canonicalizes a URL so cosmetic variants collide: the host is
// lowercased without a leading "www.", tracking parameters and the fragment
// are dropped and a single trailing slash is removed from the path.
// Input url.Parse rejects is split by hand and its parts kept verbatim
// apart from the same rules.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return normalizeParts(raw)
	}

	path := parsed.EscapedPath()
	if parsed.Opaque != "" {
		path = parsed.Opaque
	}

	hasAuthority := parsed.Host != "" || parsed.User != nil
	authority := ""
	if parsed.User != nil {
		authority = parsed.User.String() + "@"
	}
	authority += normalizeHost(parsed.Host)
	return assemble(parsed.Scheme, authority, hasAuthority, path, parsed.RawQuery)
}

// normalizeParts cuts the fragment, then the query, then scheme://authority.
func normalizeParts(raw string) string {
	rest, _, _ := strings.Cut(raw, "#")
	rest, query, _ := strings.Cut(rest, "?")

	scheme, authority, path := "", "", rest
	hasAuthority := false
	if before, after, ok := strings.Cut(rest, "://"); ok && before != "" && !strings.ContainsAny(before, "/") {
		scheme, hasAuthority = before, true
		authority, path = after, ""
		if i := strings.IndexByte(after, '/'); i >= 0 {
			authority, path = after[:i], after[i:]
		}
		userinfo, host, hasUser := strings.Cut(authority, "@")
		if hasUser {
			authority = userinfo + "@" + normalizeHost(host)
		} else {
			authority = normalizeHost(authority)
		}
	}
	return assemble(scheme, authority, hasAuthority, path, query)
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

func assemble(scheme, authority string, hasAuthority bool, path, rawQuery string) string {
	var b strings.Builder
	if scheme != "" {
		b.WriteString(scheme)
		b.WriteByte(':')
	}
	if hasAuthority {
		b.WriteString("//")
		b.WriteString(authority)
	}
	b.WriteString(strings.TrimSuffix(path, "/"))

	if query := filterQuery(rawQuery); query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}
	return b.String()
}

// filterQuery drops tracking keys and blank values. Repeated keys stay
// repeated, grouped under the position where the key first appeared.
func filterQuery(raw string) string {
	if raw == "" {
		return ""
	}

	var order []string
	grouped := map[string][]string{}
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		if value == "" {
			continue
		}
		if _, drop := trackingParams[key]; drop {
			continue
		}
		if _, ok := grouped[key]; !ok {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], value)
	}

	var b strings.Builder
	for _, key := range order {
		for _, value := range grouped[key] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(value))
		}
	}
	return b.String()
}
