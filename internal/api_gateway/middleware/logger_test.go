package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newLoggedRouter(buf *bytes.Buffer) *gin.Engine {
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	router := gin.New()
	router.Use(CorrelationID())
	router.Use(Logger(logger))
	router.GET("/users/:id/wallet", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.POST("/users/:id/wallet/debit", func(c *gin.Context) {
		c.String(http.StatusBadRequest, "no")
	})
	router.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusBadGateway)
	})
	return router
}

func TestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("SuccessAtInfoWithRouteTemplate", func(t *testing.T) {
		var buf bytes.Buffer
		router := newLoggedRouter(&buf)

		req := httptest.NewRequest(http.MethodGet, "/users/abc/wallet?verbose=1", nil)
		req.Header.Set(CorrelationIDHeader, "corr-1")
		req.Header.Set("User-Agent", "vtu-test")
		router.ServeHTTP(httptest.NewRecorder(), req)

		out := buf.String()
		assert.Contains(t, out, `"level":"INFO"`)
		assert.Contains(t, out, `"msg":"HTTP request"`)
		assert.Contains(t, out, `"path":"/users/abc/wallet?verbose=1"`)
		assert.Contains(t, out, `"route":"/users/:id/wallet"`)
		assert.Contains(t, out, `"status":200`)
		assert.Contains(t, out, `"user_agent":"vtu-test"`)
		assert.Contains(t, out, `"correlation_id":"corr-1"`)
	})

	t.Run("ClientErrorAtWarn", func(t *testing.T) {
		var buf bytes.Buffer
		router := newLoggedRouter(&buf)

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/users/abc/wallet/debit", nil))

		assert.Contains(t, buf.String(), `"level":"WARN"`)
		assert.Contains(t, buf.String(), `"status":400`)
	})

	t.Run("ServerErrorAtError", func(t *testing.T) {
		var buf bytes.Buffer
		router := newLoggedRouter(&buf)

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

		assert.Contains(t, buf.String(), `"level":"ERROR"`)
		assert.Contains(t, buf.String(), `"status":502`)
	})
}
