package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vtu-wallet-ledger/internal/platform/metrics"
)

const unmatchedRoute = "unmatched"

// Metrics records request count and latency by route template, so /users/:id counts as
// one series regardless of the id.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metrics.RecordHTTPRequest(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start).Seconds(),
		)
	}
}
