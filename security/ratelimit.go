package security

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultRateLimit is the per-client request budget per window.
const DefaultRateLimit = 30

// DefaultWindow is the sliding rate-limit window.
const DefaultWindow = 60 * time.Second

// WindowStore tracks request timestamps per client inside a sliding
// window. Allow prunes expired entries, and records the request only when
// it fits the budget: a rejected request never consumes a slot.
type WindowStore interface {
	Allow(ctx context.Context, clientID string, now time.Time, window time.Duration, budget int) (allowed bool, remaining int, err error)
}

// RateLimiter enforces a per-client sliding-window budget.
//
// Clients are identified by an opaque caller-supplied id. The original
// system derived this from a per-session hash rather than any network
// identity, which is a known precision gap: pass an authenticated user id
// or connection-derived address where one exists.
type RateLimiter struct {
	store  WindowStore
	budget int
	window time.Duration
}

// NewRateLimiter creates a limiter over the given window store.
func NewRateLimiter(store WindowStore, budget int, window time.Duration) *RateLimiter {
	if budget <= 0 {
		budget = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RateLimiter{store: store, budget: budget, window: window}
}

// Check reports whether the client may proceed and how many requests
// remain in its window. Store failures fail open: retrieval keeps working
// when the backing store is down, at the cost of limiting precision.
func (l *RateLimiter) Check(ctx context.Context, clientID string) (bool, int) {
	allowed, remaining, err := l.store.Allow(ctx, clientID, time.Now(), l.window, l.budget)
	if err != nil {
		log.Printf("security: rate limit store error, failing open: %v", err)
		return true, 0
	}
	return allowed, remaining
}

// Budget returns the per-window request budget.
func (l *RateLimiter) Budget() int { return l.budget }

// MemoryWindowStore keeps per-client windows in process memory.
type MemoryWindowStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

// NewMemoryWindowStore creates an empty in-memory window store.
func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{windows: make(map[string][]time.Time)}
}

// Allow implements WindowStore.
func (s *MemoryWindowStore) Allow(ctx context.Context, clientID string, now time.Time, window time.Duration, budget int) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	entries := s.windows[clientID]

	// Evict lazily: entries are appended in time order.
	i := 0
	for i < len(entries) && entries[i].Before(cutoff) {
		i++
	}
	entries = entries[i:]

	if len(entries) >= budget {
		s.windows[clientID] = entries
		return false, 0, nil
	}

	entries = append(entries, now)
	s.windows[clientID] = entries
	return true, budget - len(entries), nil
}
