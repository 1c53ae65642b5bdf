package middleware

import (
	"github.com/gin-gonic/gin"

	"call-insights-go/internal/logger"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := logger.RequestID(c.Request)
		c.Request.Header.Set(logger.RequestIDHeader, rid)
		c.Set(RequestIDKey, rid)
		c.Writer.Header().Set(logger.RequestIDHeader, rid)
		c.Next()
	}
}

// GetRequestID returns the id set by RequestID, or "" outside of it.
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
