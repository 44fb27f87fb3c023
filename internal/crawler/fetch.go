package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// MaxRedirects is the longest redirect chain the fetcher follows.
const MaxRedirects = 10

// response is a successful (2xx) fetch.
type response struct {
	// finalURL is the normalized URL that served the body, after redirects.
	finalURL    string
	statusCode  int
	contentType string
	body        string
	fetchedAt   time.Time
}

// fetcher performs the GET requests of one run.
type fetcher struct {
	client      *http.Client
	userAgent   string
	timeout     time.Duration
	maxBodySize int64
	headers     map[string]string
	cookie      string
}

// newFetcher copies client and confines its redirects to domain.
// The caller's client is never modified.
func newFetcher(client *http.Client, domain string, c *Crawler) *fetcher {
	confined := *client
	confined.CheckRedirect = confineRedirects(domain)

	return &fetcher{
		client:      &confined,
		userAgent:   c.userAgent,
		timeout:     c.timeout,
		maxBodySize: c.maxBodySize,
		headers:     c.headers,
		cookie:      c.cookie,
	}
}

// confineRedirects returns a CheckRedirect function that follows at most
// MaxRedirects hops and only while the target stays on domain.
func confineRedirects(domain string) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= MaxRedirects {
			return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, len(via))
		}
		if !strings.EqualFold(req.URL.Host, domain) {
			return fmt.Errorf("%w: %s", ErrOffDomainRedirect, req.URL.Host)
		}
		return nil
	}
}

// hopFunc approves one redirect target, given in normalized form.
// A non-nil error stops the redirect and fails the fetch.
type hopFunc func(target string) error

// fetch GETs pageURL and returns the decoded body of a 2xx response.
// Every other outcome is a *FetchError.
//
// Each redirect that stays on the domain is passed to hop, when hop is not
// nil, before it is followed.
//
// The request runs under its own timeout and is detached from ctx
// cancellation, so a fetch that already started is allowed to finish.
func (f *fetcher) fetch(ctx context.Context, pageURL string, hop hopFunc) (*response, error) {
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	for key, value := range f.headers {
		req.Header.Set(key, value)
	}
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}

	resp, err := f.clientFor(pageURL, hop).Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("read body: %w", err)}
	}

	contentType := resp.Header.Get("Content-Type")
	return &response{
		finalURL:    Normalize(resp.Request.URL.String()),
		statusCode:  resp.StatusCode,
		contentType: contentType,
		body:        decodeBody(body, contentType),
		fetchedAt:   time.Now(),
	}, nil
}

// clientFor returns the run client, or a copy whose redirect check also
// consults hop. A redirect back to pageURL itself, such as "/a" to "/a/",
// does not go through hop.
func (f *fetcher) clientFor(pageURL string, hop hopFunc) *http.Client {
	if hop == nil {
		return f.client
	}

	confine := f.client.CheckRedirect
	origin := Normalize(pageURL)
	client := *f.client
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if err := confine(req, via); err != nil {
			return err
		}
		target := Normalize(req.URL.String())
		if target == origin {
			return nil
		}
		return hop(target)
	}
	return &client
}

// decodeBody converts body to UTF-8 using the charset from the
// Content-Type header, a BOM or a <meta charset> tag.
// Undecodable bodies are returned unchanged.
func decodeBody(body []byte, contentType string) string {
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if enc == nil || name == "utf-8" {
		return string(body)
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}
