package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/ragweb/ragcrawl/internal/model"
)

// ExtractLinks returns the same-domain http(s) links of an HTML document.
//
// Every <a href> is resolved against baseURL, normalized with Normalize and
// kept only if its scheme is http or https and its host equals domain
// (case-insensitive, port included). Empty and fragment-only hrefs are
// ignored. The result is deduplicated and in document order.
//
// ExtractLinks never fails: unparsable hrefs are skipped and a document that
// cannot be read yields no links.
func ExtractLinks(content io.Reader, baseURL, domain string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	doc, err := html.Parse(content)
	if err != nil {
		return nil
	}

	e := &linkExtractor{
		base:   base,
		domain: domain,
		seen:   make(map[string]bool),
		links:  make([]string, 0),
	}
	e.walk(doc)
	return e.links
}

// linkExtractor collects links during one DOM walk.
type linkExtractor struct {
	base   *url.URL
	domain string
	seen   map[string]bool
	links  []string
}

func (e *linkExtractor) walk(n *html.Node) {
	if n.Type == html.ElementNode && n.Data == "a" {
		if link := e.resolveURL(getAttr(n, "href")); link != "" && !e.seen[link] {
			e.seen[link] = true
			e.links = append(e.links, link)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		e.walk(c)
	}
}

// resolveURL resolves href against the page URL and returns the normalized
// result, or "" when the link must not be followed.
func (e *linkExtractor) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := e.base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	link := resolved.String()
	if !model.SameHost(link, e.domain) {
		return ""
	}
	return Normalize(link)
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
