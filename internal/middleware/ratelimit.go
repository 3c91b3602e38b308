package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/examprep/examprep-backend/internal/response"
	"github.com/gin-gonic/gin"
)

// RateLimiter throttles requests per client IP with a token bucket.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
}

type bucket struct {
	remaining int
	refilled  time.Time
}

// NewRateLimiter allows up to limit requests per window for each IP.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
	}
	go rl.evictLoop()
	return rl
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(ip string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{remaining: rl.limit, refilled: now}
		rl.buckets[ip] = b
	}

	if elapsed := now.Sub(b.refilled); elapsed >= rl.window {
		b.remaining = rl.limit
		b.refilled = now
	}

	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// evictLoop drops buckets idle for several windows so the map stays bounded.
func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-3 * rl.window)
		rl.mu.Lock()
		for ip, b := range rl.buckets {
			if b.refilled.Before(cutoff) {
				delete(rl.buckets, ip)
			}
		}
		rl.mu.Unlock()
	}
}
