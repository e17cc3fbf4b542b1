package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultMinInterval spaces out consecutive requests
const DefaultMinInterval = 150 * time.Millisecond

// window counts requests against one of Strava's budgets
type window struct {
	limit   int
	used    int
	resetAt time.Time
	next    func(now time.Time) time.Time
}

func newWindow(limit int, now time.Time, next func(time.Time) time.Time) window {
	return window{limit: limit, resetAt: next(now), next: next}
}

// roll starts a fresh window once the current one has ended
func (w *window) roll(now time.Time) {
	if now.After(w.resetAt) {
		w.used = 0
		w.resetAt = w.next(now)
	}
}

func (w *window) exhausted() bool { return w.used >= w.limit }

func (w *window) remaining() int { return w.limit - w.used }

func fifteenMinutes(now time.Time) time.Time { return now.Add(15 * time.Minute) }

// Daily budgets reset at midnight UTC
func nextMidnight(now time.Time) time.Time { return now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour) }

// RateLimiter keeps requests inside Strava's 15-minute and daily budgets
// (100 and 1000 by default, replaced by whatever the API reports).
type RateLimiter struct {
	mu sync.Mutex

	short window
	daily window

	minInterval time.Duration
	lastRequest time.Time
}

// NewRateLimiter creates a limiter with Strava's default budgets
func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	now := time.Now()
	return &RateLimiter{
		short:       newWindow(100, now, fifteenMinutes),
		daily:       newWindow(1000, now, nextMidnight),
		minInterval: minInterval,
	}
}

// Wait blocks until a request fits both budgets and the minimum interval,
// then counts it
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range []*window{&r.short, &r.daily} {
		w.roll(time.Now())
		if !w.exhausted() {
			continue
		}
		if err := r.sleep(ctx, time.Until(w.resetAt)); err != nil {
			return err
		}
		w.roll(time.Now())
	}

	if elapsed := time.Since(r.lastRequest); elapsed < r.minInterval {
		if err := r.sleep(ctx, r.minInterval-elapsed); err != nil {
			return err
		}
	}

	r.short.used++
	r.daily.used++
	r.lastRequest = time.Now()
	return nil
}

// sleep releases the lock for d. It returns with the lock held either way.
func (r *RateLimiter) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Unlock()
	defer r.mu.Lock()

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateFromHeaders takes the budgets and usage Strava reports, e.g.
// X-RateLimit-Limit: 100,1000 and X-RateLimit-Usage: 34,512
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if short, daily, ok := headerPair(h, "X-RateLimit-Usage"); ok {
		r.short.used, r.daily.used = short, daily
	}
	if short, daily, ok := headerPair(h, "X-RateLimit-Limit"); ok {
		r.short.limit, r.daily.limit = short, daily
	}
}

func headerPair(h http.Header, name string) (int, int, bool) {
	first, second, found := strings.Cut(h.Get(name), ",")
	if !found {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(second))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Status returns the requests left in each window
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.short.remaining(), r.daily.remaining()
}

// Usage returns the requests counted in each window
func (r *RateLimiter) Usage() (shortUsage, dailyUsage int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.short.used, r.daily.used
}
