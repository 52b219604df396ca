package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Dribsphire/BMADOJT-sub000/pkg/redis"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/response"
)

// KeyFunc picks the identity a rate limit is counted against.
type KeyFunc func(c *gin.Context) string

// ByClientIP counts per client address.
func ByClientIP(c *gin.Context) string { return c.ClientIP() }

// ByUser counts per authenticated user, falling back to the client address.
func ByUser(c *gin.Context) string {
	if uid := c.GetString(CtxUserID); uid != "" {
		return "user:" + uid
	}
	return c.ClientIP()
}

// RateLimit is a Redis sliding-window limiter. With no Redis, or when Redis
// errors, requests are let through.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, keyFn KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("rate_limit:%s:%s", keyFn(c), c.FullPath())
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			response.Error(c, http.StatusTooManyRequests, response.CodeRateLimited, "too many requests, please slow down")
			c.Abort()
			return
		}

		c.Next()
	}
}
