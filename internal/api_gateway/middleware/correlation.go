package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader carries the request's correlation ID in and out.
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey is the gin context key holding the correlation ID.
	CorrelationIDKey = "correlation_id"

	maxCorrelationIDLength = 128
)

// CorrelationID reuses the caller's correlation ID when it looks sane and mints one
// otherwise. The ID is echoed on the response and flows into purchase events.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" || len(id) > maxCorrelationIDLength {
			id = uuid.NewString()
		}

		c.Header(CorrelationIDHeader, id)
		c.Set(CorrelationIDKey, id)
		c.Next()
	}
}

func GetCorrelationID(c *gin.Context) string {
	return c.GetString(CorrelationIDKey)
}
