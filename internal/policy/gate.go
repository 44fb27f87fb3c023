package policy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
)

// MaxRobotsSize is the largest robots.txt body the gate accepts.
// Larger files leave the gate Unavailable.
const MaxRobotsSize = 512 * 1024

// Gate answers robots-exclusion queries for one site.
// It is safe for concurrent use once loaded.
type Gate struct {
	siteRoot string
	robots   *robotstxt.RobotsData
	err      error
	logger   *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger used for rejected and unparsable URLs.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// Load fetches <siteRoot>/robots.txt with the given client and user agent and
// returns a Gate. Load never fails: any problem leaves the gate Unavailable,
// and Err reports the cause.
//
// The request is bounded by ctx and by the client's own timeout.
func Load(ctx context.Context, client *http.Client, siteRoot, userAgent string, opts ...Option) *Gate {
	body, err := fetchRobots(ctx, client, siteRoot, userAgent)
	if err != nil {
		g := newGate(siteRoot, opts)
		g.disable(err)
		return g
	}
	return NewGate(siteRoot, body, opts...)
}

// NewGate builds a Gate from an already fetched robots.txt body.
// A parse error leaves the gate Unavailable.
func NewGate(siteRoot string, body []byte, opts ...Option) *Gate {
	g := newGate(siteRoot, opts)

	robots, err := robotstxt.FromBytes(body)
	if err != nil {
		g.disable(fmt.Errorf("parse robots.txt: %w", err))
		return g
	}

	g.robots = robots
	if len(robots.Sitemaps) > 0 {
		g.logger.Debug("robots.txt declares sitemaps",
			"site", siteRoot,
			"sitemaps", robots.Sitemaps)
	}
	return g
}

func newGate(siteRoot string, opts []Option) *Gate {
	g := &Gate{
		siteRoot: siteRoot,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// disable records cause and leaves the gate Unavailable.
func (g *Gate) disable(cause error) {
	g.err = fmt.Errorf("%w: %w", ErrUnavailable, cause)
	g.logger.Warn("robots.txt unavailable, crawling is disabled for this site",
		"site", g.siteRoot,
		"error", cause)
}

// fetchRobots performs the robots.txt request and returns the body.
//
// Only a 2xx response is accepted. robotstxt.FromStatusAndBytes would
// treat 4xx as "allow all", which is not what this crawler wants.
func fetchRobots(ctx context.Context, client *http.Client, siteRoot, userAgent string) ([]byte, error) {
	robotsURL, err := url.JoinPath(siteRoot, "robots.txt")
	if err != nil {
		return nil, fmt.Errorf("build robots.txt URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", robotsURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", robotsURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxRobotsSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", robotsURL, err)
	}
	if len(body) > MaxRobotsSize {
		return nil, fmt.Errorf("read %s: body exceeds %d bytes", robotsURL, MaxRobotsSize)
	}
	return body, nil
}

// Available reports whether robots.txt was loaded.
func (g *Gate) Available() bool {
	return g.robots != nil
}

// Err returns why the gate is Unavailable, or nil.
func (g *Gate) Err() error {
	return g.err
}

// IsAllowed reports whether userAgent may fetch rawURL.
//
// An Unavailable gate returns false for every URL. A URL that cannot be
// parsed also returns false. Both cases are logged at warn level.
func (g *Gate) IsAllowed(rawURL, userAgent string) bool {
	if g.robots == nil {
		g.logger.Warn("rejected by unavailable robots policy", "url", rawURL)
		return false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		g.logger.Warn("rejected unparsable URL", "url", rawURL, "error", err)
		return false
	}

	return g.robots.TestAgent(u.RequestURI(), userAgent)
}

// CrawlDelay returns the Crawl-delay declared for userAgent's group.
// It returns 0 when the gate is Unavailable or no delay is declared.
func (g *Gate) CrawlDelay(userAgent string) time.Duration {
	if g.robots == nil {
		return 0
	}
	group := g.robots.FindGroup(userAgent)
	if group == nil {
		return 0
	}
	return group.CrawlDelay
}

// Sitemaps returns the sitemap URLs declared in robots.txt.
func (g *Gate) Sitemaps() []string {
	if g.robots == nil {
		return nil
	}
	return g.robots.Sitemaps
}
