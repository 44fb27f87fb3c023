package crawler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ragweb/ragcrawl/internal/model"
)

func allowEverything(string) bool { return true }

func TestRunStateClaim(t *testing.T) {
	t.Parallel()

	t.Run("claims each URL once", func(t *testing.T) {
		t.Parallel()

		s := newRunState(10)
		if got := s.claim("u", allowEverything); got != claimFetch {
			t.Fatalf("first claim = %v, want claimFetch", got)
		}
		if got := s.claim("u", allowEverything); got != claimDropped {
			t.Errorf("second claim = %v, want claimDropped", got)
		}
	})

	t.Run("rejected URLs are visited without a slot", func(t *testing.T) {
		t.Parallel()

		s := newRunState(1)
		if got := s.claim("u", func(string) bool { return false }); got != claimRejected {
			t.Fatalf("claim = %v, want claimRejected", got)
		}
		if !s.isVisited("u") {
			t.Error("rejected URL must be visited")
		}
		if s.budgetReached() {
			t.Error("rejection must not use the budget")
		}
	})

	t.Run("budget counts reserved slots", func(t *testing.T) {
		t.Parallel()

		s := newRunState(1)
		if s.claim("a", allowEverything) != claimFetch {
			t.Fatal("expected claim")
		}
		if s.claim("b", allowEverything) != claimDropped {
			t.Error("expected drop while the only slot is reserved")
		}
		if s.isVisited("b") {
			t.Error("dropped URL must not be visited")
		}

		s.release()
		if s.claim("b", allowEverything) != claimFetch {
			t.Error("expected claim after release")
		}
	})

	t.Run("never exceeds the budget under contention", func(t *testing.T) {
		t.Parallel()

		s := newRunState(5)
		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				u := string(rune('A' + i))
				if s.claim(u, allowEverything) == claimFetch {
					s.commit(u, "content")
				}
			}()
		}
		wg.Wait()

		var r model.Result
		s.fill(&r)
		if r.PageCount != 5 {
			t.Errorf("PageCount = %d, want 5", r.PageCount)
		}
		if r.SkippedCount != 0 {
			t.Errorf("SkippedCount = %d, want 0", r.SkippedCount)
		}
	})
}

func TestRunStateFill(t *testing.T) {
	t.Parallel()

	s := newRunState(10)
	s.claim("a", allowEverything)
	s.commit("a", "A")
	s.claim("b", allowEverything)
	s.release()
	s.claim("c", func(string) bool { return false })

	r := model.Result{StartedAt: time.Now()}
	s.fill(&r)

	if r.PageCount != 1 || r.SkippedCount != 2 {
		t.Errorf("PageCount = %d, SkippedCount = %d, want 1 and 2", r.PageCount, r.SkippedCount)
	}
	if len(r.URLs) != 1 || r.URLs[0] != "a" || r.Pages["a"] != "A" {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestFrontier(t *testing.T) {
	t.Parallel()

	t.Run("is FIFO and ends when work is done", func(t *testing.T) {
		t.Parallel()

		f := newFrontier()
		f.push(queueItem{url: "a"}, queueItem{url: "b"})

		item, ok := f.pop()
		if !ok || item.url != "a" {
			t.Fatalf("pop() = %v, %v", item, ok)
		}
		f.done()
		item, ok = f.pop()
		if !ok || item.url != "b" {
			t.Fatalf("pop() = %v, %v", item, ok)
		}
		f.done()

		if _, ok := f.pop(); ok {
			t.Error("expected pop to report completion")
		}
	})

	t.Run("waits for in-flight items before finishing", func(t *testing.T) {
		t.Parallel()

		f := newFrontier()
		f.push(queueItem{url: "seed"})
		if _, ok := f.pop(); !ok {
			t.Fatal("expected seed")
		}

		got := make(chan queueItem)
		go func() {
			item, _ := f.pop()
			got <- item
		}()

		time.Sleep(10 * time.Millisecond)
		f.push(queueItem{url: "child", depth: 1})
		f.done()

		if item := <-got; item.url != "child" {
			t.Errorf("waiting pop got %v, want child", item)
		}
	})

	t.Run("close releases waiters", func(t *testing.T) {
		t.Parallel()

		f := newFrontier()
		f.push(queueItem{url: "seed"})
		_, _ = f.pop()

		done := make(chan bool)
		go func() {
			_, ok := f.pop()
			done <- ok
		}()

		f.close()
		if <-done {
			t.Error("expected pop to fail after close")
		}
		f.push(queueItem{url: "late"})
		if _, ok := f.pop(); ok {
			t.Error("closed frontier must not accept new work")
		}
	})
}

func TestRunStateClaimRedirect(t *testing.T) {
	t.Parallel()

	s := newRunState(10)
	if s.claim("a", allowEverything) != claimFetch {
		t.Fatal("expected claim")
	}

	if err := s.claimRedirect("a", allowEverything); !errors.Is(err, ErrRedirectVisited) {
		t.Errorf("redirect to a claimed URL: got %v, want ErrRedirectVisited", err)
	}
	if err := s.claimRedirect("private", func(string) bool { return false }); !errors.Is(err, ErrPolicyRejected) {
		t.Errorf("redirect to a disallowed URL: got %v, want ErrPolicyRejected", err)
	}
	if err := s.claimRedirect("b", allowEverything); err != nil {
		t.Fatalf("redirect to a new URL: %v", err)
	}

	if !s.isVisited("b") {
		t.Error("redirect target must block later links")
	}
	if s.claim("b", allowEverything) != claimDropped {
		t.Error("redirect target must not be claimed again")
	}
	if err := s.claimRedirect("b", allowEverything); !errors.Is(err, ErrRedirectVisited) {
		t.Errorf("second redirect to the same target: got %v", err)
	}

	s.commit("a", "body")
	var r model.Result
	s.fill(&r)
	if r.SkippedCount != 0 {
		t.Errorf("SkippedCount = %d, redirect targets must not count as skipped", r.SkippedCount)
	}
}
