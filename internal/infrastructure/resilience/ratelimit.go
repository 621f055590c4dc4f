package resilience

import (
	"context"
	"sync"
	"time"
)

// Key identifies one rate-limited caller on one route.
type Key struct {
	Client string
	Route  string
}

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// LimitStore is the pluggable counter storage behind a RateLimiter.
// The in-memory store suits single-process deployments; multi-instance
// deployments swap in an external one.
type LimitStore interface {
	// Incr bumps the counter for key within the current window and
	// returns the new count plus the window's expiry.
	Incr(key Key, window time.Duration) (count int, resetAt time.Time)
	// Sweep drops expired windows.
	Sweep()
}

// RateLimiter enforces a fixed-window request budget per (client, route).
type RateLimiter struct {
	store    LimitStore
	requests int
	window   time.Duration
}

// NewRateLimiter creates a limiter allowing requests per window per key.
func NewRateLimiter(store LimitStore, requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{store: store, requests: requests, window: window}
}

// Allow records one request for key and reports whether it fits the budget.
func (l *RateLimiter) Allow(key Key) Decision {
	count, resetAt := l.store.Incr(key, l.window)
	remaining := l.requests - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= l.requests,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// Janitor periodically sweeps expired windows until ctx is cancelled.
func (l *RateLimiter) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.store.Sweep()
		}
	}
}

// MemoryStore is the default in-process LimitStore.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[Key]*window
	now     func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// NewMemoryStore creates an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[Key]*window),
		now:     time.Now,
	}
}

func (s *MemoryStore) Incr(key Key, d time.Duration) (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(d)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt
}

func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, w := range s.windows {
		if now.After(w.resetAt) {
			delete(s.windows, key)
		}
	}
}
