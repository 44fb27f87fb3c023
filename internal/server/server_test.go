package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ragweb/ragcrawl/internal/crawler"
	"github.com/ragweb/ragcrawl/internal/model"
	"github.com/ragweb/ragcrawl/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newSite starts a three-page site: / links to /a and /b.
func newSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "User-agent: *\nDisallow:\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/":
			_, _ = io.WriteString(w, `<html><a href="/a">a</a><a href="/b">b</a></html>`)
		case "/a", "/b":
			_, _ = io.WriteString(w, "<html>"+r.URL.Path+"</html>")
		default:
			http.NotFound(w, r)
		}
	})

	site := httptest.NewServer(mux)
	t.Cleanup(site.Close)
	return site
}

func newTestServer(site *httptest.Server, opts ...Option) *Server {
	factory := func(*model.Job) *crawler.Crawler {
		return crawler.New(
			crawler.WithHTTPClient(site.Client()),
			crawler.WithLogger(quietLogger()),
		)
	}
	return New(factory, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func postCrawl(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/crawl", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type memoryRuns struct {
	mu   sync.Mutex
	runs []*model.Result
}

func (m *memoryRuns) SaveRun(_ context.Context, result *model.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, result)
	return nil
}

func (m *memoryRuns) ListRuns(context.Context, string, int) ([]*model.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs, nil
}

func TestServer_Crawl(t *testing.T) {
	t.Parallel()

	site := newSite(t)
	runs := &memoryRuns{}
	h := newTestServer(site, WithRunStore(runs)).Handler()

	rec := postCrawl(t, h, `{"start_url": "`+site.URL+`/", "max_pages": 10, "max_depth": 2, "crawl_delay_ms": 0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var result model.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	want := []string{site.URL, site.URL + "/a", site.URL + "/b"}
	if result.PageCount != 3 || result.SkippedCount != 0 {
		t.Errorf("page_count = %d, skipped_count = %d, want 3 and 0", result.PageCount, result.SkippedCount)
	}
	if strings.Join(result.URLs, " ") != strings.Join(want, " ") {
		t.Errorf("urls = %v, want %v", result.URLs, want)
	}

	t.Run("pages of the last run", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		var pages map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &pages); err != nil {
			t.Fatalf("invalid body: %v", err)
		}
		if len(pages) != 3 {
			t.Fatalf("got %d pages, want 3", len(pages))
		}
		if pages[site.URL+"/a"] != "<html>/a</html>" {
			t.Errorf("content of /a = %q", pages[site.URL+"/a"])
		}
	})

	t.Run("run is recorded", func(t *testing.T) {
		recorded, _ := runs.ListRuns(t.Context(), "", 0)
		if len(recorded) != 1 || recorded[0].RunID != result.RunID {
			t.Errorf("recorded runs = %v, want the run %s", recorded, result.RunID)
		}
	})
}

func TestServer_CrawlUsesDefaults(t *testing.T) {
	t.Parallel()

	site := newSite(t)
	var gotHost string
	h := newTestServer(site, WithDefaults(func(host string) Defaults {
		gotHost = host
		return Defaults{MaxDepth: 2, MaxPages: 1}
	})).Handler()

	rec := postCrawl(t, h, `{"start_url": "`+site.URL+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result model.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if result.PageCount != 1 {
		t.Errorf("page_count = %d, want 1 from the defaults", result.PageCount)
	}
	if gotHost != strings.TrimPrefix(site.URL, "http://") {
		t.Errorf("defaults asked for host %q", gotHost)
	}
}

func TestServer_CrawlRejectsBadRequests(t *testing.T) {
	t.Parallel()

	site := newSite(t)
	h := newTestServer(site).Handler()

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "malformed json", body: `{"start_url":`, wantErr: "invalid request body"},
		{name: "wrong type", body: `{"start_url": "` + site.URL + `", "max_pages": "ten"}`, wantErr: "invalid request body"},
		{name: "missing start url", body: `{}`, wantErr: "start_url is required"},
		{name: "unsupported scheme", body: `{"start_url": "ftp://example.com"}`, wantErr: "invalid start url"},
		{name: "relative url", body: `{"start_url": "/docs"}`, wantErr: "invalid start url"},
		{name: "zero budget", body: `{"start_url": "` + site.URL + `", "max_pages": 0}`, wantErr: "max pages"},
		{name: "negative depth", body: `{"start_url": "` + site.URL + `", "max_depth": -1}`, wantErr: "max depth"},
		{name: "negative delay", body: `{"start_url": "` + site.URL + `", "crawl_delay_ms": -5}`, wantErr: "delay"},
		{name: "delay overflows a duration", body: `{"start_url": "` + site.URL + `", "crawl_delay_ms": 9223372036854775807}`, wantErr: "out of range"},
		{name: "negative delay overflows a duration", body: `{"start_url": "` + site.URL + `", "crawl_delay_ms": -9223372036854775807}`, wantErr: "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := postCrawl(t, h, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
			}

			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid error body: %v", err)
			}
			if !strings.Contains(strings.ToLower(body["error"]), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", body["error"], tt.wantErr)
			}
		})
	}
}

func TestServer_Routes(t *testing.T) {
	t.Parallel()

	h := New(nil, WithLogger(quietLogger())).Handler()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "health", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK, wantBody: `{"status":"ok"}`},
		{name: "pages before any crawl", method: http.MethodGet, path: "/pages", wantStatus: http.StatusOK, wantBody: `{}`},
		{name: "crawl needs POST", method: http.MethodGet, path: "/crawl", wantStatus: http.StatusMethodNotAllowed},
		{name: "unknown path", method: http.MethodGet, path: "/index", wantStatus: http.StatusNotFound},
		{name: "preflight", method: http.MethodOptions, path: "/crawl", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && strings.TrimSpace(rec.Body.String()) != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Error("expected CORS header on every response")
			}
		})
	}
}

// memoryPages is a PageReader over a fixed map.
type memoryPages map[string]string

func (m memoryPages) GetPage(_ context.Context, pageURL string) (*model.Page, error) {
	content, ok := m[pageURL]
	if !ok {
		return nil, fmt.Errorf("page %s: %w", pageURL, store.ErrNotFound)
	}
	return &model.Page{URL: pageURL, Content: content}, nil
}

func TestServer_PageLookup(t *testing.T) {
	t.Parallel()

	s := New(nil, WithLogger(quietLogger()), WithPageReader(memoryPages{
		"https://example.test/old": "stored",
	}))
	s.record(t.Context(), &model.Result{
		FinishedAt: time.Now(),
		Pages:      map[string]string{"https://example.test/new": "fresh"},
	})
	bare := New(nil, WithLogger(quietLogger()))

	tests := []struct {
		name       string
		server     *Server
		query      string
		wantStatus int
		wantBody   string
	}{
		{name: "page of the last run", server: s, query: "https://example.test/new/", wantStatus: http.StatusOK, wantBody: `{"https://example.test/new":"fresh"}`},
		{name: "stored page", server: s, query: "https://example.test/old#top", wantStatus: http.StatusOK, wantBody: `{"https://example.test/old":"stored"}`},
		{name: "unknown page", server: s, query: "https://example.test/none", wantStatus: http.StatusNotFound},
		{name: "no page reader", server: bare, query: "https://example.test/old", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			target := "/pages?url=" + url.QueryEscape(tt.query)
			tt.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantBody != "" && strings.TrimSpace(rec.Body.String()) != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if tt.wantStatus == http.StatusNotFound && !strings.Contains(rec.Body.String(), "page not found") {
				t.Errorf("body = %q, want a not found error", rec.Body.String())
			}
		})
	}
}

func TestServer_RecordKeepsNewestRun(t *testing.T) {
	t.Parallel()

	s := New(nil, WithLogger(quietLogger()))
	now := time.Now()

	s.record(t.Context(), &model.Result{FinishedAt: now, Pages: map[string]string{"new": "x"}})
	s.record(t.Context(), &model.Result{FinishedAt: now.Add(-time.Second), Pages: map[string]string{"old": "y"}})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages", nil))
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"new"`)) {
		t.Errorf("expected the newest run's pages, got %s", rec.Body.String())
	}
}

func TestServer_ListenAndServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- New(nil, WithLogger(quietLogger())).ListenAndServe(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
