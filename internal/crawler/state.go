package crawler

import (
	"fmt"
	"sync"

	"github.com/ragweb/ragcrawl/internal/model"
)

// claimResult is the outcome of runState.claim.
type claimResult int

const (
	// claimDropped means the URL was visited already or the budget is
	// exhausted. Nothing changed.
	claimDropped claimResult = iota
	// claimRejected means the URL is now visited but policy disallows it.
	claimRejected
	// claimFetch means the URL is now visited and holds a budget slot.
	claimFetch
)

// runState is the traversal state of one run: the visited set, the page
// budget and the fetched pages. All methods are safe for concurrent use.
//
// A budget slot is reserved when a URL is claimed for fetching and either
// committed on success or released on failure, so fetched pages never
// exceed maxPages even with fetches in flight.
type runState struct {
	mu       sync.Mutex
	maxPages int
	visited  map[string]struct{}

	// redirected holds redirect targets already requested. They block later
	// claims like visited URLs but are not counted as skipped.
	redirected map[string]struct{}

	fetched  int
	reserved int
	urls     []string
	pages    map[string]string
}

func newRunState(maxPages int) *runState {
	return &runState{
		maxPages:   maxPages,
		visited:    make(map[string]struct{}),
		redirected: make(map[string]struct{}),
		urls:       make([]string, 0),
		pages:      make(map[string]string),
	}
}

// claim checks budget and visited set, then marks pageURL visited.
// allowed is consulted only for URLs that are new.
func (s *runState) claim(pageURL string, allowed func(string) bool) claimResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetched+s.reserved >= s.maxPages {
		return claimDropped
	}
	if s.seen(pageURL) {
		return claimDropped
	}

	s.visited[pageURL] = struct{}{}
	if !allowed(pageURL) {
		return claimRejected
	}
	s.reserved++
	return claimFetch
}

// claimRedirect approves a redirect hop of a claimed fetch. The target
// must be new to the run and allowed by policy; it then shares the budget
// slot of the fetch that was redirected.
func (s *runState) claimRedirect(target string, allowed func(string) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen(target) {
		return fmt.Errorf("%w: %s", ErrRedirectVisited, target)
	}
	if !allowed(target) {
		return fmt.Errorf("%w: %s", ErrPolicyRejected, target)
	}
	s.redirected[target] = struct{}{}
	return nil
}

// seen reports whether pageURL was claimed or requested through a redirect.
// The caller holds s.mu.
func (s *runState) seen(pageURL string) bool {
	if _, ok := s.visited[pageURL]; ok {
		return true
	}
	_, ok := s.redirected[pageURL]
	return ok
}

// commit turns a reserved slot into a fetched page.
func (s *runState) commit(pageURL, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reserved--
	s.fetched++
	s.urls = append(s.urls, pageURL)
	s.pages[pageURL] = content
}

// release gives back a reserved slot after a failed fetch or save.
func (s *runState) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserved--
}

// isVisited reports whether pageURL is already in the visited set or was
// reached through a redirect.
func (s *runState) isVisited(pageURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen(pageURL)
}

// budgetReached reports whether the committed and reserved slots fill the
// budget.
func (s *runState) budgetReached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetched+s.reserved >= s.maxPages
}

// fill copies the counters and pages into r.
func (s *runState) fill(r *model.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.PageCount = s.fetched
	r.SkippedCount = len(s.visited) - s.fetched
	r.URLs = append(make([]string, 0, len(s.urls)), s.urls...)
	r.Pages = make(map[string]string, len(s.pages))
	for u, content := range s.pages {
		r.Pages[u] = content
	}
}
