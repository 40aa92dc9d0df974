// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a keyed token-bucket limiter. Each key gets its own bucket that
// refills limit tokens per duration. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	every   rate.Limit
	burst   int
	idle    time.Duration // buckets untouched this long are dropped
	stopCh  chan struct{}
	once    sync.Once
	now     func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// New creates a limiter allowing limit requests per duration for each key.
func New(limit int, duration time.Duration) *Limiter {
	if limit < 1 {
		limit = 1
	}
	l := &Limiter{
		buckets: make(map[string]*bucket),
		every:   rate.Every(duration / time.Duration(limit)),
		burst:   limit,
		idle:    duration * 2,
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}
	go l.cleanupLoop()
	return l
}

func (l *Limiter) get(key string) *bucket {
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.seen = l.now()
	return b
}

// Allow reports whether a request for key may proceed and consumes a token
// if so.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.get(key).lim.AllowN(l.now(), 1)
}

// Remaining returns how many requests key could make right now.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		return l.burst
	}
	n := int(b.lim.TokensAt(l.now()))
	if n < 0 {
		return 0
	}
	return n
}

// Reset clears the bucket for key, e.g. after a successful login.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Stop ends the cleanup goroutine.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stopCh) })
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.idle)
	for key, b := range l.buckets {
		if b.seen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// AuthLimiter throttles register and login attempts by client IP and by
// username, so neither a single client nor a spread of clients can hammer
// one account.
type AuthLimiter struct {
	ip      *Limiter
	account *Limiter
}

// NewAuthLimiter creates an AuthLimiter with the given per-minute IP budget
// and per-five-minute account budget.
func NewAuthLimiter(perIPPerMinute, perAccountPer5Min int) *AuthLimiter {
	return &AuthLimiter{
		ip:      New(perIPPerMinute, time.Minute),
		account: New(perAccountPer5Min, 5*time.Minute),
	}
}

// Check verifies if an attempt should be allowed. reason is empty when it is.
func (a *AuthLimiter) Check(r *http.Request, username string) (bool, string) {
	if !a.ip.Allow(ClientIP(r)) {
		return false, "too many attempts, please wait a minute before trying again"
	}
	if key := accountKey(username); key != "" && !a.account.Allow(key) {
		return false, "too many attempts for this account, please wait a few minutes"
	}
	return true, ""
}

// ResetAccount clears the account budget after a successful login.
func (a *AuthLimiter) ResetAccount(username string) {
	if key := accountKey(username); key != "" {
		a.account.Reset(key)
	}
}

// Stop releases both limiters' cleanup goroutines.
func (a *AuthLimiter) Stop() {
	a.ip.Stop()
	a.account.Stop()
}

func accountKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
