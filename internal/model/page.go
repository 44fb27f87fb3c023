package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Page is the record of one successfully fetched URL.
// It is created by the crawler after a 2xx response, handed to a PageStore
// and never modified after that.
type Page struct {
	// URL is the normalized URL the page was fetched from.
	URL string `json:"url"`

	// Content is the raw response body decoded to UTF-8.
	Content string `json:"-"`

	// FetchedAt is when the response was received.
	FetchedAt time.Time `json:"fetched_at"`

	// StatusCode is the HTTP status of the response (always 2xx).
	StatusCode int `json:"status_code"`

	// ContentType is the Content-Type header of the response.
	ContentType string `json:"content_type,omitempty"`

	// Hash is the SHA-256 of Content, hex encoded.
	Hash string `json:"hash"`
}

// NewPage builds a Page and computes its content hash.
func NewPage(url, content string, statusCode int, contentType string, fetchedAt time.Time) *Page {
	p := &Page{
		URL:         url,
		Content:     content,
		FetchedAt:   fetchedAt,
		StatusCode:  statusCode,
		ContentType: contentType,
	}
	p.computeHash()
	return p
}

// computeHash sets Hash from Content. Empty content has an empty hash.
func (p *Page) computeHash() {
	if p.Content == "" {
		p.Hash = ""
		return
	}
	sum := sha256.Sum256([]byte(p.Content))
	p.Hash = hex.EncodeToString(sum[:])
}

// IsHTML returns true if the content type indicates HTML.
// An empty content type is treated as HTML because many small servers omit
// the header for their pages.
func (p *Page) IsHTML() bool {
	ct := strings.ToLower(p.ContentType)
	return ct == "" ||
		strings.HasPrefix(ct, "text/html") ||
		strings.HasPrefix(ct, "application/xhtml+xml")
}
