// Package ratelimit provides a fixed-window request limiter keyed by
// client identity.
//
// It is an approximate throttle, not a correctness mechanism: counters
// live in process memory, expired windows are evicted lazily on access,
// and multi-process deployments should swap in a shared counter store
// behind the same interface.
package ratelimit

import (
	"sync"
	"time"
)

// Config sets the window length and the request budget per window.
type Config struct {
	Window      time.Duration
	MaxRequests int
}

// Result reports whether a request was admitted and how much budget is
// left in the current window.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per key over fixed windows.
type Limiter struct {
	cfg Config

	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// New creates a limiter with the given configuration.
func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:     cfg,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Allow records a request for key and reports whether it fits the
// current window. Expired windows across all keys are evicted here, so
// the map stays bounded by the set of recently active clients.
func (l *Limiter) Allow(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)

	w, ok := l.windows[key]
	if !ok || !w.resetAt.After(now) {
		w = &window{count: 1, resetAt: now.Add(l.cfg.Window)}
		l.windows[key] = w
		return Result{Allowed: true, Remaining: l.cfg.MaxRequests - 1, ResetAt: w.resetAt}
	}

	if w.count >= l.cfg.MaxRequests {
		return Result{Allowed: false, Remaining: 0, ResetAt: w.resetAt}
	}

	w.count++
	return Result{Allowed: true, Remaining: l.cfg.MaxRequests - w.count, ResetAt: w.resetAt}
}

// evict drops windows whose reset time has passed. Callers hold the lock.
func (l *Limiter) evict(now time.Time) {
	for key, w := range l.windows {
		if !w.resetAt.After(now) {
			delete(l.windows, key)
		}
	}
}
