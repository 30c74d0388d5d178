package api

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// rateLimiter is an in-memory per-client-IP sliding window limiter,
// adapted from the teacher's per-endpoint RateLimiter (internal/api/server.go)
// down to a single global window since this surface has seven routes, not
// the teacher's dozens of differently-weighted ones.
type rateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)
	kept := rl.requests[key][:0]
	for _, t := range rl.requests[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= rl.limit {
		rl.requests[key] = kept
		return false
	}
	rl.requests[key] = append(kept, now)
	return true
}

func (rl *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			respondError(c, 429, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
