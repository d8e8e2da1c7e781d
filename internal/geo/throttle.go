package geo

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle lets at most one position per interval through for each session.
// Positions arriving inside the window are dropped; Force (tab refocus)
// always passes and restarts the window.
type Throttle struct {
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*throttleEntry
}

type throttleEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
		now:      time.Now,
		sessions: make(map[string]*throttleEntry),
	}
}

// Allow reports whether an update for session may be persisted now.
func (t *Throttle) Allow(session string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	e, ok := t.sessions[session]
	if !ok {
		e = &throttleEntry{lim: rate.NewLimiter(rate.Every(t.interval), 1)}
		t.sessions[session] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

// Force records an out-of-window update for session; the next window starts now.
func (t *Throttle) Force(session string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	lim := rate.NewLimiter(rate.Every(t.interval), 1)
	lim.AllowN(now, 1)
	t.sessions[session] = &throttleEntry{lim: lim, seen: now}
}

// Forget drops state for an ended session.
func (t *Throttle) Forget(session string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, session)
}

// Sweep removes sessions not seen for longer than idle and returns how many.
func (t *Throttle) Sweep(idle time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-idle)
	removed := 0
	for k, e := range t.sessions {
		if e.seen.Before(cutoff) {
			delete(t.sessions, k)
			removed++
		}
	}
	return removed
}

// Len number of tracked sessions.
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
