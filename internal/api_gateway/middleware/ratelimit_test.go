package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Limit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limiter := NewRateLimiter(0.001, 2, time.Minute)
	router := gin.New()
	router.Use(limiter.Limit())
	router.GET("/plans", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	call := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/plans", nil)
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:5002"))

	// Budgets are per IP.
	assert.Equal(t, http.StatusOK, call("10.0.0.2:5000"))
}

func TestRateLimiter_Sweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(1, 1, 3*time.Minute)
	limiter.now = func() time.Time { return now }

	limiter.Allow("10.0.0.1")
	now = now.Add(2 * time.Minute)
	limiter.Allow("10.0.0.2")
	now = now.Add(2 * time.Minute)

	assert.Equal(t, 1, limiter.Sweep())
	assert.Len(t, limiter.visitors, 1)
	assert.Contains(t, limiter.visitors, "10.0.0.2")
}
