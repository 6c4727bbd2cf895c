package utils

import (
	"sync"
	"time"
)

// Limiter enforces a minimum interval between page navigations. The archive
// is served by a single rendered-page session, so pacing is a simple
// last-request clamp rather than a token bucket.
type Limiter struct {
	minInterval time.Duration
	mu          sync.Mutex
	lastRequest time.Time
}

// NewLimiter creates a Limiter with the given minimum interval in
// milliseconds. A non-positive interval disables pacing.
func NewLimiter(intervalMs int) *Limiter {
	return &Limiter{
		minInterval: time.Duration(intervalMs) * time.Millisecond,
	}
}

// Wait blocks until at least the configured interval has passed since the
// previous call returned.
func (l *Limiter) Wait() {
	if l.minInterval <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	elapsed := time.Since(l.lastRequest)
	if elapsed < l.minInterval {
		time.Sleep(l.minInterval - elapsed)
	}
	l.lastRequest = time.Now()
}
