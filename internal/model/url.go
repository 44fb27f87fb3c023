package model

import (
	"net/url"
	"strings"
)

// NormalizeURL returns the canonical form of rawURL used as the visited-set
// key, the store key and the result entry.
//
// The fragment is removed first, then a single trailing slash, so that
// "/a/", "/a" and "/a#top" all name the same resource. Scheme and host are
// lowercased; userinfo, path and query are kept as is.
func NormalizeURL(rawURL string) string {
	s, _, _ := strings.Cut(strings.TrimSpace(rawURL), "#")
	return strings.TrimSuffix(foldSchemeHost(s), "/")
}

// foldSchemeHost lowercases the scheme and host of an absolute URL.
// Strings without "://" are returned unchanged.
func foldSchemeHost(s string) string {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return s
	}

	end := strings.IndexAny(rest, "/?")
	if end < 0 {
		end = len(rest)
	}
	authority, tail := rest[:end], rest[end:]

	userinfo := ""
	if at := strings.LastIndex(authority, "@"); at >= 0 {
		userinfo, authority = authority[:at+1], authority[at+1:]
	}
	return strings.ToLower(scheme) + "://" + userinfo + strings.ToLower(authority) + tail
}

// SameHost reports whether rawURL points at host.
// Hosts are compared case-insensitively and include the port.
func SameHost(rawURL, host string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, host)
}
