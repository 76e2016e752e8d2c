package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery turns a panic into the standard 500 error body. The stack is logged, never
// returned.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			correlationID := GetCorrelationID(c)
			logger.Error("Panic recovered",
				"error", r,
				"stack", string(debug.Stack()),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"correlation_id", correlationID,
			)

			body := gin.H{
				"error": gin.H{
					"code":    "INTERNAL_SERVER_ERROR",
					"message": "An internal server error occurred",
				},
			}
			if correlationID != "" {
				body["correlation_id"] = correlationID
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()

		c.Next()
	}
}
