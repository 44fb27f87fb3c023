// Package server exposes the crawler over HTTP.
//
// Endpoints:
//
//	POST /crawl    run a crawl and return its Result as JSON
//	GET  /pages    {url: raw content} of the most recent run
//	GET  /healthz  liveness probe
//
// A crawl request body looks like
//
//	{"start_url": "https://example.com", "max_pages": 50, "max_depth": 2, "crawl_delay_ms": 500}
//
// Only start_url is required; the other fields fall back to the server's
// defaults for the start URL's host. Invalid values are rejected with
// 400 and a JSON body {"error": "..."} before any network I/O.
//
// The crawl runs inside the request, so the response arrives when the
// crawl is finished. If the client goes away the crawl is cancelled and
// its partial result is still recorded.
package server
