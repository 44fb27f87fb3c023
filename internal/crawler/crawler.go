package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ragweb/ragcrawl/internal/model"
	"github.com/ragweb/ragcrawl/internal/policy"
	"github.com/ragweb/ragcrawl/internal/store"
)

// Default values used by New.
const (
	DefaultUserAgent   = "RAG-WebCrawler/1.0"
	DefaultTimeout     = 10 * time.Second
	DefaultMaxBodySize = 5 * 1024 * 1024
)

// Crawler runs crawl jobs. The same Crawler can run many jobs, one after
// another or concurrently; every run has its own traversal state.
type Crawler struct {
	// client is the base HTTP client. Each run uses a copy with redirects
	// confined to the job's domain.
	client *http.Client

	// store receives every fetched page. nil keeps pages in the result only.
	store store.PageStore

	logger *slog.Logger

	// userAgent is sent with every request and used for robots matching.
	userAgent string

	// timeout bounds each request, robots.txt included.
	timeout time.Duration

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// workers is the number of concurrent fetchers. 1 selects the
	// sequential depth-first traversal.
	workers int

	// headers and cookie are added to every page request.
	headers map[string]string
	cookie  string

	// filter holds the ignore and follow patterns.
	filter linkFilter

	// respectCrawlDelay raises the job delay to the robots Crawl-delay.
	respectCrawlDelay bool
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithHTTPClient sets the base HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Crawler) {
		if client != nil {
			c.client = client
		}
	}
}

// WithStore sets the PageStore that receives fetched pages.
func WithStore(s store.PageStore) Option {
	return func(c *Crawler) {
		c.store = s
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent sets the User-Agent header and robots agent.
func WithUserAgent(ua string) Option {
	return func(c *Crawler) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Crawler) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) Option {
	return func(c *Crawler) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithWorkers sets the number of concurrent fetchers.
// Values below 2 select the sequential traversal.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithHeaders sets extra request headers sent with every page request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Crawler) {
		c.headers = headers
	}
}

// WithCookie sets the Cookie header sent with every page request.
func WithCookie(cookie string) Option {
	return func(c *Crawler) {
		c.cookie = cookie
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.filter.ignore = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only links matching at least one pattern are enqueued.
func WithFollowPatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.filter.follow = patterns
	}
}

// WithRespectCrawlDelay makes a robots.txt Crawl-delay longer than the job
// delay take precedence.
func WithRespectCrawlDelay(respect bool) Option {
	return func(c *Crawler) {
		c.respectCrawlDelay = respect
	}
}

// New creates a Crawler.
func New(opts ...Option) *Crawler {
	c := &Crawler{
		client:      &http.Client{},
		userAgent:   DefaultUserAgent,
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		workers:     1,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// run is the per-job context shared by the traversal functions.
type run struct {
	job     *model.Job
	gate    *policy.Gate
	fetcher *fetcher
	state   *runState
	delay   time.Duration
	logger  *slog.Logger
}

// Run crawls job and returns its result.
//
// Per-URL problems (robots rejection, fetch failure, save failure) never
// fail the run; they are logged and counted in SkippedCount. An unreadable
// robots.txt makes every URL rejected and sets PolicyUnavailable.
//
// If ctx is cancelled, no new fetch starts, fetches already in flight
// finish, and Run returns the partial result with Cancelled set together
// with ctx.Err().
func (c *Crawler) Run(ctx context.Context, job *model.Job) (*model.Result, error) {
	if job == nil {
		return nil, ErrNilJob
	}

	result := &model.Result{
		RunID:     uuid.NewString(),
		StartURL:  job.StartURL,
		StartedAt: time.Now(),
	}
	logger := c.logger.With("run_id", result.RunID, "domain", job.Domain)

	f := newFetcher(c.client, job.Domain, c)
	if len(c.headers) > 0 {
		logger.Debug("using site request headers", slog.Group("headers", headerAttrs(c.headers)...))
	}

	robotsCtx, cancel := context.WithTimeout(ctx, c.timeout)
	gate := policy.Load(robotsCtx, f.client, job.SiteRoot(), c.userAgent, policy.WithLogger(logger))
	cancel()

	r := &run{
		job:     job,
		gate:    gate,
		fetcher: f,
		state:   newRunState(job.MaxPages),
		delay:   c.effectiveDelay(job, gate),
		logger:  logger,
	}
	result.PolicyUnavailable = !gate.Available()

	logger.Info("crawl started",
		"start_url", job.StartURL,
		"max_depth", job.MaxDepth,
		"max_pages", job.MaxPages,
		"delay", r.delay,
		"workers", c.workers,
		"sitemaps", len(gate.Sitemaps()),
	)

	var err error
	if c.workers > 1 {
		err = c.runConcurrent(ctx, r)
	} else {
		err = c.runSequential(ctx, r)
	}

	r.state.fill(result)
	result.FinishedAt = time.Now()
	if ctx.Err() != nil {
		result.Cancelled = true
		err = ctx.Err()
	}

	logger.Info("crawl finished",
		"pages", result.PageCount,
		"skipped", result.SkippedCount,
		"cancelled", result.Cancelled,
		"elapsed", result.Duration(),
	)

	return result, err
}

// effectiveDelay returns the job delay, raised to the robots Crawl-delay
// when that is enabled and longer.
func (c *Crawler) effectiveDelay(job *model.Job, gate *policy.Gate) time.Duration {
	if !c.respectCrawlDelay {
		return job.Delay
	}
	return max(job.Delay, gate.CrawlDelay(c.userAgent))
}

// runSequential is the depth-first traversal. An explicit stack replaces
// recursion; children are pushed in reverse so they are visited in document
// order, which makes the fetch order equal to a recursive pre-order walk.
func (c *Crawler) runSequential(ctx context.Context, r *run) error {
	stack := []queueItem{{url: r.job.StartURL, depth: 0}}

	for len(stack) > 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		links, fetched := c.visit(ctx, r, item)
		if !fetched {
			continue
		}

		if err := sleep(ctx, r.delay); err != nil {
			return err
		}

		children := c.children(r, item, links)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return nil
}

// runConcurrent pulls from a shared FIFO frontier with c.workers workers.
// Politeness is enforced by a per-host rate limiter instead of sleeping.
func (c *Crawler) runConcurrent(ctx context.Context, r *run) error {
	fr := newFrontier()
	fr.push(queueItem{url: r.job.StartURL, depth: 0})
	stop := context.AfterFunc(ctx, fr.close)
	defer stop()

	limiters := newHostLimiters(r.delay)

	g := new(errgroup.Group)
	for range c.workers {
		g.Go(func() error {
			for {
				item, ok := fr.pop()
				if !ok {
					return nil
				}

				if ctx.Err() == nil {
					links, fetched := c.visitLimited(ctx, r, item, limiters)
					if fetched {
						fr.push(c.children(r, item, links)...)
					}
				}
				fr.done()
			}
		})
	}

	return g.Wait()
}

// visitLimited is visit with the per-host limiter applied between claim and
// fetch.
func (c *Crawler) visitLimited(ctx context.Context, r *run, item queueItem, limiters *hostLimiters) ([]string, bool) {
	return c.visitWith(ctx, r, item, func() error {
		return limiters.wait(ctx, r.job.Domain)
	})
}

// visit processes one frontier entry. It returns the page's links and
// whether the page was fetched and saved.
func (c *Crawler) visit(ctx context.Context, r *run, item queueItem) ([]string, bool) {
	return c.visitWith(ctx, r, item, nil)
}

func (c *Crawler) visitWith(ctx context.Context, r *run, item queueItem, beforeFetch func() error) ([]string, bool) {
	if item.depth > r.job.MaxDepth {
		return nil, false
	}

	switch r.state.claim(item.url, c.allowed(r)) {
	case claimDropped:
		return nil, false
	case claimRejected:
		r.logger.Info("skipped URL", "url", item.url, "reason", ErrPolicyRejected)
		return nil, false
	case claimFetch:
	}

	if beforeFetch != nil {
		if err := beforeFetch(); err != nil {
			r.state.release()
			return nil, false
		}
	}

	resp, err := r.fetcher.fetch(ctx, item.url, func(target string) error {
		return r.state.claimRedirect(target, c.allowed(r))
	})
	if err != nil {
		r.state.release()
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
			r.logger.Warn("skipped URL", "url", item.url, "status", fetchErr.StatusCode)
		} else {
			r.logger.Warn("skipped URL", "url", item.url, "error", err)
		}
		return nil, false
	}

	page := model.NewPage(item.url, resp.body, resp.statusCode, resp.contentType, resp.fetchedAt)
	if c.store != nil {
		location, err := c.store.Save(context.WithoutCancel(ctx), page)
		if err != nil {
			r.state.release()
			r.logger.Error("skipped URL", "url", item.url, "error", fmt.Errorf("%w: %w", ErrPersist, err))
			return nil, false
		}
		r.logger.Debug("saved page", "url", item.url, "location", location)
	}

	r.state.commit(item.url, resp.body)
	r.logger.Info("fetched page", "url", item.url, "depth", item.depth, "status", resp.statusCode)

	if !page.IsHTML() {
		r.logger.Debug("no links extracted from non-HTML page", "url", item.url, "content_type", page.ContentType)
		return nil, true
	}
	if resp.finalURL != item.url {
		r.logger.Debug("followed redirect", "url", item.url, "final_url", resp.finalURL)
	}

	// Relative links are relative to the URL that served the body.
	return ExtractLinks(strings.NewReader(resp.body), resp.finalURL, r.job.Domain), true
}

// allowed adapts the gate for runState.claim.
func (c *Crawler) allowed(r *run) func(string) bool {
	return func(pageURL string) bool {
		return r.gate.IsAllowed(pageURL, c.userAgent)
	}
}

// children turns the links of a page at item.depth into frontier entries.
// Links beyond the depth limit, links already visited and links filtered by
// the ignore and follow patterns are left out. Leaving a link out has no side
// effect, so this only saves work.
func (c *Crawler) children(r *run, item queueItem, links []string) []queueItem {
	depth := item.depth + 1
	if depth > r.job.MaxDepth || r.state.budgetReached() {
		return nil
	}

	items := make([]queueItem, 0, len(links))
	for _, link := range links {
		if r.state.isVisited(link) || !c.filter.allows(link) {
			continue
		}
		items = append(items, queueItem{url: link, depth: depth})
	}
	return items
}

// headerAttrs converts headers to slog attributes.
func headerAttrs(headers map[string]string) []any {
	attrs := make([]any, 0, len(headers))
	for k, v := range headers {
		attrs = append(attrs, slog.String(k, v))
	}
	return attrs
}
