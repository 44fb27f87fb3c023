package crawler

import "github.com/ragweb/ragcrawl/internal/model"

// Normalize returns the canonical form of a URL: fragment removed, then one
// trailing slash removed. Normalize is idempotent.
func Normalize(rawURL string) string {
	return model.NormalizeURL(rawURL)
}
