package model

import (
	"fmt"
	"net/url"
	"time"
)

// Job is the immutable configuration of a single crawl run.
// It is created once by NewJob and never mutated afterwards; the crawler
// only reads it.
type Job struct {
	// StartURL is the normalized seed URL (see NormalizeURL).
	StartURL string `json:"start_url"`

	// Scheme is the seed's scheme, either "http" or "https".
	Scheme string `json:"scheme"`

	// Domain is the seed's host including any port. Only URLs on this host
	// are ever fetched.
	Domain string `json:"domain"`

	// MaxDepth is the inclusive maximum link distance from the seed.
	// 0 means only the seed itself is fetched.
	MaxDepth int `json:"max_depth"`

	// MaxPages is the page budget: the run never fetches more pages than this.
	MaxPages int `json:"max_pages"`

	// Delay is the politeness pause after every successful fetch.
	Delay time.Duration `json:"delay"`
}

// NewJob validates the inputs and builds a Job.
// Every returned error wraps one of the Err* sentinels of this package.
func NewJob(startURL string, maxDepth, maxPages int, delay time.Duration) (*Job, error) {
	normalized := NormalizeURL(startURL)
	u, err := url.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidStartURL, startURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStartURL, startURL)
	}
	if maxPages <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxPages, maxPages)
	}
	if maxDepth < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxDepth, maxDepth)
	}
	if delay < 0 {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidDelay, delay)
	}

	return &Job{
		StartURL: normalized,
		Scheme:   u.Scheme,
		Domain:   u.Host,
		MaxDepth: maxDepth,
		MaxPages: maxPages,
		Delay:    delay,
	}, nil
}

// SiteRoot returns scheme://domain, the base against which robots.txt is
// resolved.
func (j *Job) SiteRoot() string {
	return j.Scheme + "://" + j.Domain
}
