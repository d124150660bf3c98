package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	adminMaxFailures  = 5
	adminFailureSpan  = 10 * time.Minute
	adminLockout      = 15 * time.Minute
	adminSweepEveryOp = 64
)

// attemptLimiter locks out a client after repeated bad admin tokens.
type attemptLimiter struct {
	mu      sync.Mutex
	clients map[string]attempts
	limit   int
	span    time.Duration
	lockout time.Duration
	ops     int
	maxIdle time.Duration
}

type attempts struct {
	failures    int
	firstAt     time.Time
	lockedUntil time.Time
	lastSeen    time.Time
}

func newAttemptLimiter(limit int, span, lockout time.Duration) *attemptLimiter {
	if limit <= 0 || span <= 0 || lockout <= 0 {
		return nil
	}
	return &attemptLimiter{
		clients: map[string]attempts{},
		limit:   limit,
		span:    span,
		lockout: lockout,
		maxIdle: 2 * max(span, lockout),
	}
}

// Locked reports whether client is inside a lockout window.
func (l *attemptLimiter) Locked(client string, now time.Time) bool {
	if l == nil || client == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	a := l.clients[client]
	a.lastSeen = now
	l.clients[client] = a
	l.sweepLocked(now)
	return now.Before(a.lockedUntil)
}

// Fail records a bad attempt and starts a lockout once limit is reached
// within span.
func (l *attemptLimiter) Fail(client string, now time.Time) {
	if l == nil || client == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	a := l.clients[client]
	if a.firstAt.IsZero() || now.Sub(a.firstAt) > l.span {
		a.failures = 0
		a.firstAt = now
	}
	a.failures++
	if a.failures >= l.limit {
		a.lockedUntil = now.Add(l.lockout)
		a.failures = 0
		a.firstAt = time.Time{}
	}
	a.lastSeen = now
	l.clients[client] = a
	l.sweepLocked(now)
}

// Clear forgets a client after a successful attempt.
func (l *attemptLimiter) Clear(client string) {
	if l == nil || client == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, client)
}

func (l *attemptLimiter) sweepLocked(now time.Time) {
	l.ops++
	if l.ops%adminSweepEveryOp != 0 {
		return
	}
	for client, a := range l.clients {
		if now.Sub(a.lastSeen) > l.maxIdle {
			delete(l.clients, client)
		}
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
