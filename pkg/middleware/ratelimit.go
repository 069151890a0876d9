package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/dhawalhost/manageusers/pkg/apperr"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter manages a rate limiter per caller key.
type KeyedRateLimiter struct {
	entries map[string]*limiterEntry
	mu      sync.Mutex
	r       rate.Limit
	b       int
	idle    time.Duration
}

// NewKeyedRateLimiter creates a new rate limiter.
// r is the rate of events (requests per second).
// b is the burst size.
// Limiters unused for idle are evicted by Cleanup.
func NewKeyedRateLimiter(r rate.Limit, b int, idle time.Duration) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		entries: make(map[string]*limiterEntry),
		r:       r,
		b:       b,
		idle:    idle,
	}
}

// GetLimiter returns the rate limiter for the given key.
func (l *KeyedRateLimiter) GetLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, exists := l.entries[key]
	if !exists {
		e = &limiterEntry{limiter: rate.NewLimiter(l.r, l.b)}
		l.entries[key] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

// Cleanup evicts limiters idle for longer than the configured interval.
func (l *KeyedRateLimiter) Cleanup(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	evicted := 0
	for k, e := range l.entries {
		if now.Sub(e.lastSeen) > l.idle {
			delete(l.entries, k)
			evicted++
		}
	}
	return evicted
}

// Run evicts idle limiters every interval until ctx is done.
func (l *KeyedRateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Cleanup(now)
		}
	}
}

// RateLimitMiddleware creates a Gin middleware keyed by the authenticated
// caller, falling back to the client IP for anonymous requests.
func RateLimitMiddleware(limiter *KeyedRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if caller, err := CallerFromGinContext(c); err == nil && caller.Username != "" {
			key = "user:" + caller.Username
		}
		if !limiter.GetLimiter(key).Allow() {
			apperr.Respond(c, nil, apperr.TooManyRequests("Too many requests"))
			return
		}
		c.Next()
	}
}
