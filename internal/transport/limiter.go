package transport

import (
	"net/netip"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 5 * time.Minute

type sourceLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// sourceLimiter keeps one token bucket per sending address.
type sourceLimiter struct {
	limit     rate.Limit
	burst     int
	mu        sync.Mutex
	entries   map[netip.Addr]*sourceLimiterEntry
	lastPrune time.Time
	now       func() time.Time
}

// newSourceLimiter returns nil when perSecond <= 0; a nil limiter allows everything.
func newSourceLimiter(perSecond float64, burst int) *sourceLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &sourceLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		entries: make(map[netip.Addr]*sourceLimiterEntry),
		now:     time.Now,
	}
}

func (s *sourceLimiter) Allow(src netip.Addr) bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastPrune) > limiterIdleTTL {
		s.pruneLocked(now)
	}

	entry, ok := s.entries[src]
	if !ok {
		entry = &sourceLimiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[src] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (s *sourceLimiter) pruneLocked(now time.Time) {
	for addr, entry := range s.entries {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(s.entries, addr)
		}
	}
	s.lastPrune = now
}

func (s *sourceLimiter) size() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
