package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimit returns a middleware enforcing a per-client request budget over
// a sliding window, counted in Redis so the limit holds across instances.
// Keys live under the same configured prefix as the rest of the keyspace.
func RateLimit(client *redis.Client, keyPrefix string, max int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		panic("redis client cannot be nil for RateLimit middleware")
	}
	if keyPrefix == "" {
		keyPrefix = "rt:"
	}

	return func(c *gin.Context) {
		key := fmt.Sprintf("%sratelimit:%s", keyPrefix, c.ClientIP())

		pipe := client.Pipeline()
		incr := pipe.Incr(c.Request.Context(), key)
		pipe.Expire(c.Request.Context(), key, window)
		if _, err := pipe.Exec(c.Request.Context()); err != nil {
			// Fail open: a limiter outage must not take the API down.
			logrus.WithError(err).Warn("Rate limit check failed, allowing request")
			c.Next()
			return
		}

		if incr.Val() > int64(max) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
