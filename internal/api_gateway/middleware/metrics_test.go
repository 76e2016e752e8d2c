package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/vtu-wallet-ledger/internal/platform/metrics"
)

func TestMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Metrics())
	router.GET("/ledgers/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	matched := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/ledgers/:id", "200")
	unmatched := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404")
	beforeMatched := testutil.ToFloat64(matched)
	beforeUnmatched := testutil.ToFloat64(unmatched)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ledgers/a", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ledgers/b", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, beforeMatched+2, testutil.ToFloat64(matched))
	assert.Equal(t, beforeUnmatched+1, testutil.ToFloat64(unmatched))
}
