package model

import "errors"

// Crawl job configuration errors.
// These are the only fatal errors of a crawl: they are returned by NewJob
// before any network or disk I/O happens. Callers use errors.Is to tell them
// apart from runtime failures.
var (
	// ErrInvalidStartURL is returned when the start URL cannot be parsed into
	// an absolute http or https URL with a host.
	ErrInvalidStartURL = errors.New("invalid start URL: must be an absolute http or https URL")

	// ErrInvalidMaxPages is returned when the page budget is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidMaxDepth is returned when the max depth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidDelay is returned when the inter-fetch delay is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")
)
