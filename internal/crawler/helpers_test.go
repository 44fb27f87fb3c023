package crawler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/ragweb/ragcrawl/internal/model"
	"github.com/ragweb/ragcrawl/internal/policy"
)

// failingStore rejects every page.
type failingStore struct{}

func (failingStore) Save(context.Context, *model.Page) (string, error) {
	return "", errors.New("disk full")
}

// recordingStore remembers saved URLs in order.
type recordingStore struct {
	mu    sync.Mutex
	saved []string
}

func (r *recordingStore) Save(_ context.Context, page *model.Page) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, page.URL)
	return "memory://" + page.URL, nil
}

func (r *recordingStore) urls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.saved...)
}

// redirectHandler redirects the given paths and passes the rest on.
func redirectHandler(targets map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if target, ok := targets[r.URL.Path]; ok {
				http.Redirect(w, r, target, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// hookHandler calls hook when path is requested, then serves it normally.
func hookHandler(path string, hook func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == path {
				hook()
			}
			next.ServeHTTP(w, r)
		})
	}
}

func loadGate(t *testing.T, c *Crawler, job *model.Job) *policy.Gate {
	t.Helper()

	gate := policy.Load(context.Background(), c.client, job.SiteRoot(), c.userAgent)
	if !gate.Available() {
		t.Fatalf("robots.txt not loaded: %v", gate.Err())
	}
	return gate
}
