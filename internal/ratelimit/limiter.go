package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Defaults matching the public certificate endpoints.
const (
	DefaultMaxRequests   = 10
	DefaultWindow        = 60 * time.Second
	DefaultSweepInterval = 5 * time.Minute
)

// Decision is the outcome of a single limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
}

// RetryAfter returns the whole-second retry hint for a denied request,
// rounded up, never below 1.
func (d Decision) RetryAfter(now time.Time) int {
	secs := int((d.ResetTime.Sub(now) + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

type entry struct {
	count     int
	resetTime time.Time
}

// Limiter is a fixed-window, per-client request counter. It is an
// approximate, best-effort limiter: state lives in process memory and
// does not survive restarts, and no coordination happens across
// instances.
type Limiter struct {
	mu          sync.Mutex
	entries     map[string]*entry
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// New creates a Limiter allowing maxRequests per window for each client
// identifier. Non-positive arguments fall back to the defaults.
func New(maxRequests int, window time.Duration) *Limiter {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		entries:     make(map[string]*entry),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Check records one request for the identifier and reports whether it is
// allowed. The check-then-increment runs under the lock, so concurrent
// requests for the same identifier never lose updates.
func (l *Limiter) Check(identifier string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[identifier]

	if !ok || now.After(e.resetTime) {
		// First request, or the previous window expired.
		reset := now.Add(l.window)
		l.entries[identifier] = &entry{count: 1, resetTime: reset}
		return Decision{Allowed: true, Remaining: l.maxRequests - 1, ResetTime: reset}
	}

	if e.count >= l.maxRequests {
		return Decision{Allowed: false, Remaining: 0, ResetTime: e.resetTime}
	}

	e.count++
	return Decision{Allowed: true, Remaining: l.maxRequests - e.count, ResetTime: e.resetTime}
}

// SweepExpired removes entries whose window has passed, bounding memory
// growth, and returns the number removed. Exposed so tests and the
// background sweep can run it deterministically.
func (l *Limiter) SweepExpired(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, e := range l.entries {
		if now.After(e.resetTime) {
			delete(l.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired entries every interval until the context is
// cancelled. The caller owns the goroutine; the limiter schedules
// nothing on its own.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			l.SweepExpired(t)
		}
	}
}

// Len returns the number of tracked identifiers.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
