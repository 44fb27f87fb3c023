package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrPolicyRejected is logged when robots.txt disallows a URL.
	ErrPolicyRejected = errors.New("rejected by robots policy")

	// ErrPersist is logged when a fetched page could not be saved.
	// The page is then treated as not fetched.
	ErrPersist = errors.New("failed to persist page")

	// ErrOffDomainRedirect is wrapped by FetchError when a redirect leaves
	// the crawl domain.
	ErrOffDomainRedirect = errors.New("redirect leaves crawl domain")

	// ErrTooManyRedirects is wrapped by FetchError when a redirect chain is
	// longer than MaxRedirects.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrRedirectVisited is wrapped by FetchError when a redirect points at
	// a URL this run has already claimed.
	ErrRedirectVisited = errors.New("redirect target already visited")

	// ErrNilJob is returned by Run when no job is given.
	ErrNilJob = errors.New("crawl job is nil")
)

// FetchError describes a failed GET: a transport error, a timeout, a
// confined redirect or a non-2xx status.
type FetchError struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}
