package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

func rateLimitedRouter(keyPrefix string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	// Nothing listens here: every limiter round trip fails.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	router := gin.New()
	router.Use(RateLimit(client, keyPrefix, 10, time.Second))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestRateLimitFailsOpenWhenStoreUnavailable(t *testing.T) {
	router := rateLimitedRouter("custom:")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitDefaultsKeyPrefix(t *testing.T) {
	// An empty prefix falls back to the standard one instead of writing to
	// the keyspace root; the middleware still serves.
	router := rateLimitedRouter("")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
