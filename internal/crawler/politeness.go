package crawler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostLimiters spaces requests to each host by at least delay.
// It is used by concurrent runs; sequential runs sleep after each fetch.
type hostLimiters struct {
	mu       sync.Mutex
	delay    time.Duration
	limiters map[string]*rate.Limiter
}

func newHostLimiters(delay time.Duration) *hostLimiters {
	return &hostLimiters{
		delay:    delay,
		limiters: make(map[string]*rate.Limiter),
	}
}

// wait blocks until a request to host is permitted or ctx is done.
func (h *hostLimiters) wait(ctx context.Context, host string) error {
	return h.limiter(host).Wait(ctx)
}

func (h *hostLimiters) limiter(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.limiters[host]
	if !ok {
		limit := rate.Inf
		if h.delay > 0 {
			limit = rate.Every(h.delay)
		}
		l = rate.NewLimiter(limit, 1)
		h.limiters[host] = l
	}
	return l
}

// sleep pauses for d unless ctx is done first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
