package model

import "time"

// Result summarizes one crawl run. It is the response body of the crawl API.
//
// SkippedCount is the number of URLs that were marked visited but not
// fetched: policy rejections, fetch failures and persistence failures
// together. Individual causes are only logged.
type Result struct {
	// RunID identifies the run in logs and in the run history.
	RunID string `json:"run_id"`

	// StartURL is the normalized seed of the run.
	StartURL string `json:"start_url"`

	// PageCount is the number of pages fetched and stored.
	PageCount int `json:"page_count"`

	// SkippedCount is visited minus fetched.
	SkippedCount int `json:"skipped_count"`

	// URLs lists fetched URLs in fetch order.
	URLs []string `json:"urls"`

	// PolicyUnavailable is true when robots.txt could not be loaded and the
	// run therefore fetched nothing.
	PolicyUnavailable bool `json:"policy_unavailable,omitempty"`

	// Cancelled is true when the run was stopped through its context.
	Cancelled bool `json:"cancelled,omitempty"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Pages maps each fetched URL to its raw content. It is the hand-off to
	// the downstream extraction pipeline and is not part of the response body.
	Pages map[string]string `json:"-"`
}

// Duration returns how long the run took.
func (r *Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
