// Package policy implements the robots-exclusion gate consulted by the
// crawler before every fetch.
//
// A Gate is loaded once per crawl from the site's /robots.txt and then
// answers "may this agent fetch this URL". Parsing and rule matching are
// delegated to github.com/temoto/robotstxt.
//
// # Fail closed
//
// When robots.txt cannot be obtained (network error, timeout, non-2xx
// status, oversize body, parse error) the gate is Unavailable and denies
// every URL. The crawl then completes with zero pages instead of failing.
// A missing robots.txt (404) is treated the same way; a site that wants to
// be crawled serves one.
//
// # Usage
//
//	gate := policy.Load(ctx, client, "https://example.com", "RAG-WebCrawler/1.0")
//	if !gate.Available() {
//		logger.Warn("robots unavailable", "error", gate.Err())
//	}
//	if gate.IsAllowed("https://example.com/docs", "RAG-WebCrawler/1.0") {
//		// fetch
//	}
package policy
