package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khaaleoo/gin-rate-limiter/core"
)

// AuthRateLimiter throttles the login/OTP endpoints per client IP. It is
// the edge half of the OTP brute-force defense; the per-challenge attempt
// counter is the other half.
func AuthRateLimiter() gin.HandlerFunc {
	limiter := core.RequireRateLimiter(core.RateLimiter{
		RateLimiterType: core.IPRateLimiter,
		Key:             "auth_requests_per_ip",
		Option: core.RateLimiterOption{
			Limit: 5,
			Burst: 10,
			Len:   1 * time.Minute,
		},
	})

	return func(c *gin.Context) {
		limiter(c)
		if c.IsAborted() {
			if !c.Writer.Written() {
				c.JSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests. Try again later."})
			}
			return
		}
		c.Next()
	}
}
