package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ragweb/ragcrawl/internal/config"
	"github.com/ragweb/ragcrawl/internal/crawler"
	"github.com/ragweb/ragcrawl/internal/model"
	"github.com/ragweb/ragcrawl/internal/store"
)

const (
	// maxRequestBody limits the size of a crawl request body.
	maxRequestBody = 1 << 20

	// shutdownTimeout bounds the graceful shutdown in ListenAndServe.
	shutdownTimeout = 30 * time.Second

	// maxDelayMS is the largest crawl_delay_ms that fits in a time.Duration.
	maxDelayMS = math.MaxInt64 / int64(time.Millisecond)
)

// Defaults are the crawl limits used for fields a request omits.
type Defaults struct {
	MaxDepth int
	MaxPages int
	Delay    time.Duration
}

// CrawlerFactory returns the Crawler for a job. It lets the caller apply
// per-site headers, cookies and patterns.
type CrawlerFactory func(job *model.Job) *crawler.Crawler

// Server is the HTTP API. It keeps the page map of the most recent run
// in memory for downstream consumers.
type Server struct {
	factory  CrawlerFactory
	defaults func(host string) Defaults
	runs     store.RunStore
	pages    store.PageReader
	logger   *slog.Logger

	mu        sync.RWMutex
	lastPages map[string]string
	lastEnd   time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRunStore records every finished run in rs.
func WithRunStore(rs store.RunStore) Option {
	return func(s *Server) {
		s.runs = rs
	}
}

// WithPageReader lets GET /pages?url= answer from stored pages when the
// URL is not part of the most recent run.
func WithPageReader(pr store.PageReader) Option {
	return func(s *Server) {
		s.pages = pr
	}
}

// WithDefaults sets the function that provides the limits for a host.
func WithDefaults(fn func(host string) Defaults) Option {
	return func(s *Server) {
		if fn != nil {
			s.defaults = fn
		}
	}
}

// New creates a Server. A nil factory uses crawler.New with no options.
func New(factory CrawlerFactory, opts ...Option) *Server {
	if factory == nil {
		factory = func(*model.Job) *crawler.Crawler { return crawler.New() }
	}
	s := &Server{
		factory: factory,
		defaults: func(string) Defaults {
			return Defaults{
				MaxDepth: config.DefaultCrawlDepth,
				MaxPages: config.DefaultMaxPages,
				Delay:    config.DefaultCrawlDelay,
			}
		},
		lastPages: map[string]string{},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /crawl", s.handleCrawl)
	mux.HandleFunc("GET /pages", s.handlePages)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return withCORS(mux)
}

// ListenAndServe serves the API on addr until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// crawlRequest is the POST /crawl body. Pointer fields distinguish an
// omitted value from an explicit zero.
type crawlRequest struct {
	StartURL     string `json:"start_url"`
	MaxPages     *int   `json:"max_pages"`
	MaxDepth     *int   `json:"max_depth"`
	CrawlDelayMS *int64 `json:"crawl_delay_ms"`
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrInvalidBody, err))
		return
	}

	job, err := s.jobFor(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.factory(job).Run(r.Context(), job)
	if result != nil {
		s.record(r.Context(), result)
	}
	if err != nil {
		if r.Context().Err() != nil {
			s.logger.Warn("crawl cancelled by client", "start_url", job.StartURL)
			return
		}
		s.logger.Error("crawl failed", "start_url", job.StartURL, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// jobFor validates req and fills omitted fields from the defaults.
func (s *Server) jobFor(req crawlRequest) (*model.Job, error) {
	startURL := strings.TrimSpace(req.StartURL)
	if startURL == "" {
		return nil, ErrMissingStartURL
	}

	var host string
	if u, err := url.Parse(startURL); err == nil {
		host = u.Host
	}
	d := s.defaults(host)

	if req.MaxDepth != nil {
		d.MaxDepth = *req.MaxDepth
	}
	if req.MaxPages != nil {
		d.MaxPages = *req.MaxPages
	}
	if req.CrawlDelayMS != nil {
		ms := *req.CrawlDelayMS
		if ms > maxDelayMS || ms < -maxDelayMS {
			return nil, fmt.Errorf("%w: crawl_delay_ms %d is out of range", model.ErrInvalidDelay, ms)
		}
		d.Delay = time.Duration(ms) * time.Millisecond
	}

	return model.NewJob(startURL, d.MaxDepth, d.MaxPages, d.Delay)
}

// record keeps result's pages as the most recent run and saves the run.
// Runs finishing out of order do not replace a newer page map.
func (s *Server) record(ctx context.Context, result *model.Result) {
	s.mu.Lock()
	if !result.FinishedAt.Before(s.lastEnd) {
		s.lastPages = result.Pages
		s.lastEnd = result.FinishedAt
	}
	s.mu.Unlock()

	if s.runs == nil {
		return
	}
	if err := s.runs.SaveRun(context.WithoutCancel(ctx), result); err != nil {
		s.logger.Error("failed to save run", "run_id", result.RunID, "error", err)
	}
}

// handlePages serves the page map of the most recent run, or with ?url= a
// single page looked up in that run first and in the page reader second.
func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	pages := s.lastPages
	s.mu.RUnlock()

	if pages == nil {
		pages = map[string]string{}
	}

	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeJSON(w, http.StatusOK, pages)
		return
	}

	pageURL := model.NormalizeURL(raw)
	if content, ok := pages[pageURL]; ok {
		writeJSON(w, http.StatusOK, map[string]string{pageURL: content})
		return
	}
	if s.pages == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", ErrPageNotFound, pageURL))
		return
	}

	page, err := s.pages.GetPage(r.Context(), pageURL)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", ErrPageNotFound, pageURL))
		return
	}
	if err != nil {
		s.logger.Error("failed to read stored page", "url", pageURL, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{page.URL: page.Content})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// withCORS allows browser front ends on any origin to call the API.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
