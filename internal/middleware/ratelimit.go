package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/syllabind/core/internal/pkg/bark"
)

const (
	rateLimitMax    = 50
	rateLimitWindow = time.Second
)

type rateLimiter struct {
	mu     sync.Mutex
	window int64
	counts map[string]int
}

func (l *rateLimiter) hit(ip string, now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	sec := now.Unix()
	if sec != l.window {
		l.window = sec
		l.counts = make(map[string]int, len(l.counts))
	}
	l.counts[ip]++
	return l.counts[ip]
}

// RateLimit enforces a per-IP fixed window of 50 requests per second.
// Admin requests bypass the limit.
func RateLimit(barkSvc *bark.Service) gin.HandlerFunc {
	limiter := &rateLimiter{counts: make(map[string]int)}

	return func(c *gin.Context) {
		if IsAdmin(c) {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		if limiter.hit(ip, time.Now()) > rateLimitMax {
			if barkSvc != nil {
				go barkSvc.ThrottlePush(ip, "Rate limited", ip+" exceeded "+c.Request.URL.Path)
			}
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"ok":      0,
				"code":    http.StatusTooManyRequests,
				"message": "too many requests, slow down",
			})
			return
		}

		c.Next()
	}
}
