package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fixedClock lets tests drive the limiter's view of time.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(maxRequests int, window time.Duration) (*Limiter, *fixedClock) {
	l := New(maxRequests, window)
	clock := &fixedClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	l.now = clock.now
	return l, clock
}

func TestCheck_WindowProperty(t *testing.T) {
	l, _ := newTestLimiter(10, time.Minute)

	for i := 1; i <= 10; i++ {
		d := l.Check("client-a")
		if !d.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if d.Remaining != 10-i {
			t.Errorf("request %d: remaining = %d, want %d", i, d.Remaining, 10-i)
		}
	}

	d := l.Check("client-a")
	if d.Allowed {
		t.Fatal("11th request inside the window should be denied")
	}
	if d.Remaining != 0 {
		t.Errorf("denied request: remaining = %d, want 0", d.Remaining)
	}
}

func TestCheck_IdentifiersAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(2, time.Minute)

	l.Check("client-a")
	l.Check("client-a")
	if d := l.Check("client-a"); d.Allowed {
		t.Fatal("client-a should be exhausted")
	}
	if d := l.Check("client-b"); !d.Allowed {
		t.Fatal("client-b must not be affected by client-a's window")
	}
}

func TestCheck_ResetProperty(t *testing.T) {
	l, clock := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		l.Check("client-a")
	}
	if d := l.Check("client-a"); d.Allowed {
		t.Fatal("window should be exhausted")
	}

	// Strictly after resetTime the count starts over at 1.
	clock.advance(time.Minute + time.Millisecond)
	d := l.Check("client-a")
	if !d.Allowed {
		t.Fatal("request after window expiry should be allowed")
	}
	if d.Remaining != 2 {
		t.Errorf("remaining after reset = %d, want 2", d.Remaining)
	}
}

func TestCheck_DeniedKeepsResetTime(t *testing.T) {
	l, clock := newTestLimiter(1, time.Minute)

	first := l.Check("client-a")
	clock.advance(10 * time.Second)
	denied := l.Check("client-a")

	if denied.Allowed {
		t.Fatal("second request should be denied")
	}
	if !denied.ResetTime.Equal(first.ResetTime) {
		t.Errorf("denied ResetTime = %v, want unchanged %v", denied.ResetTime, first.ResetTime)
	}
	if ra := denied.RetryAfter(clock.now()); ra != 50 {
		t.Errorf("RetryAfter = %d, want 50", ra)
	}
}

func TestRetryAfter_NeverBelowOne(t *testing.T) {
	d := Decision{ResetTime: time.Now().Add(-time.Second)}
	if ra := d.RetryAfter(time.Now()); ra != 1 {
		t.Errorf("RetryAfter for a passed reset = %d, want 1", ra)
	}
}

func TestSweepExpired(t *testing.T) {
	l, clock := newTestLimiter(5, time.Minute)

	l.Check("client-a")
	l.Check("client-b")
	clock.advance(30 * time.Second)
	l.Check("client-c")

	if removed := l.SweepExpired(clock.now()); removed != 0 {
		t.Fatalf("sweep before expiry removed %d entries", removed)
	}

	// a and b expire, c's window still has 30s left.
	clock.advance(45 * time.Second)
	if removed := l.SweepExpired(clock.now()); removed != 2 {
		t.Fatalf("sweep removed %d entries, want 2", removed)
	}
	if l.Len() != 1 {
		t.Errorf("entries after sweep = %d, want 1", l.Len())
	}
}

func TestCheck_ConcurrentSameIdentifier(t *testing.T) {
	l, _ := newTestLimiter(100, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 250; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check("shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 100 {
		t.Errorf("allowed = %d, want exactly 100 (no lost updates)", allowed)
	}
}
