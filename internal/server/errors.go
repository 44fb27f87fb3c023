package server

import "errors"

var (
	// ErrMissingStartURL is returned when a crawl request has no start_url.
	ErrMissingStartURL = errors.New("start_url is required")

	// ErrInvalidBody is returned when a crawl request body is not valid JSON.
	ErrInvalidBody = errors.New("invalid request body")

	// ErrPageNotFound is returned by GET /pages?url= for an unknown page.
	ErrPageNotFound = errors.New("page not found")
)
