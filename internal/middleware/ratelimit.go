package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Token bucket settings applied per client IP. Tests tune them before building the middleware.
var (
	requestsPerMinute = 60
	burst             = 20
	idleTTL           = 10 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits each client IP with a token bucket refilled at
// requestsPerMinute and holding up to burst requests. Buckets idle for longer
// than idleTTL are dropped.
//
// Response when limit exceeded:
//
//	HTTP/1.1 429 Too Many Requests
//	{
//	    "error": "rate limit exceeded"
//	}
func RateLimiter() gin.HandlerFunc {
	every := rate.Limit(float64(requestsPerMinute) / 60)
	size := burst
	ttl := idleTTL

	var (
		mu       sync.Mutex
		visitors = make(map[string]*visitor)
		swept    = time.Now()
	)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		if now.Sub(swept) > ttl {
			for k, v := range visitors {
				if now.Sub(v.lastSeen) > ttl {
					delete(visitors, k)
				}
			}
			swept = now
		}
		v, ok := visitors[ip]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(every, size)}
			visitors[ip] = v
		}
		v.lastSeen = now
		allowed := v.limiter.AllowN(now, 1)
		mu.Unlock()

		if !allowed {
			c.Header("Retry-After", "1")
			AbortWithError(c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}

		c.Next()
	}
}
