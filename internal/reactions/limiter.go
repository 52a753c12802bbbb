package reactions

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type limiterKey struct {
	webinar     uuid.UUID
	participant uuid.UUID
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a token bucket per (webinar, participant).
type Limiter struct {
	mu      sync.Mutex
	entries map[limiterKey]*limiterEntry
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewLimiter allows perSecond reactions per participant with the given burst.
// A non-positive perSecond disables limiting.
func NewLimiter(perSecond float64, burst int) *Limiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{entries: make(map[limiterKey]*limiterEntry), limit: limit, burst: burst, now: time.Now}
}

// Allow reports whether the participant may react now.
func (l *Limiter) Allow(webinarID, participantID uuid.UUID) bool {
	now := l.now()
	l.mu.Lock()
	k := limiterKey{webinarID, participantID}
	e, ok := l.entries[k]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[k] = e
	}
	e.lastSeen = now
	l.mu.Unlock()
	return e.limiter.AllowN(now, 1)
}

// Sweep drops limiters idle for longer than idle and returns how many were dropped.
func (l *Limiter) Sweep(idle time.Duration) int {
	cutoff := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked participants.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
