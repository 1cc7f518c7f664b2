// Package urlutil holds the small URL-normalization helpers shared by the
// rate limiter, the deduplicator, and the board model. Keeping one
// implementation avoids the host-extraction logic drifting between them.
package urlutil

import (
	"net/url"
	"strings"
)

// HostOf returns the scheme+authority of a URL, lowercased, e.g.
// "https://Example.com:8080/foo" -> "https://example.com:8080". Falls back
// to a best-effort string trim if the URL does not parse.
func HostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fallbackHost(raw)
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return strings.ToLower(scheme + "://" + u.Host)
}

func fallbackHost(raw string) string {
	s := strings.TrimPrefix(raw, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.IndexAny(s, "/?#"); i != -1 {
		s = s[:i]
	}
	return strings.ToLower("http://" + s)
}

// Normalize returns scheme+host+path with no query/fragment, no trailing
// slash, lowercased: the canonical form used for exact-match deduplication.
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSuffix(raw, "/"))
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "http"
	}
	host := strings.ToLower(u.Host)
	path := strings.TrimSuffix(u.Path, "/")
	return strings.ToLower(scheme + "://" + host + path)
}

// IsAbsolute reports whether raw looks like an absolute http(s) URL.
func IsAbsolute(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}

// Resolve resolves ref against base, returning ref unchanged if either
// fails to parse or ref is already absolute.
func Resolve(base, ref string) string {
	if IsAbsolute(ref) {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
