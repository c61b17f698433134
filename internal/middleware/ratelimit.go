package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/sharmaji2007/student-counsellor-system/internal/clients/redis"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/requestdata"
)

// RateLimiter throttles per user per named scope. With Redis the
// counters are shared across replicas; without it each process falls
// back to in-memory token buckets.
type RateLimiter struct {
	log     *logger.Logger
	counter redis.RateCounter

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewRateLimiter accepts a nil counter; the in-memory fallback is used
// in that case.
func NewRateLimiter(baseLog *logger.Logger, counter redis.RateCounter) *RateLimiter {
	return &RateLimiter{
		log:     baseLog.With("middleware", "RateLimiter"),
		counter: counter,
		buckets: make(map[string]*rate.Limiter),
	}
}

// PerMinute limits each authenticated user to n requests per minute on
// the given scope. Unauthenticated requests fall back to the client IP.
func (rl *RateLimiter) PerMinute(scope string, n int) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.ClientIP()
		if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil {
			subject = rd.UserID.String()
		}
		key := fmt.Sprintf("ratelimit:%s:%s", scope, subject)

		if !rl.allow(c, key, n) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"message": "rate limit exceeded", "code": "rate_limited"},
			})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(c *gin.Context, key string, n int) bool {
	if rl.counter != nil {
		count, err := rl.counter.Incr(c.Request.Context(), key, time.Minute)
		if err == nil {
			return count <= int64(n)
		}
		// Redis down: degrade to the local buckets rather than blocking traffic.
		rl.log.Warn("Rate counter unavailable, using in-memory fallback", "error", err.Error())
	}

	rl.mu.Lock()
	limiter, ok := rl.buckets[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(n)/60.0), n)
		rl.buckets[key] = limiter
	}
	rl.mu.Unlock()
	return limiter.Allow()
}
