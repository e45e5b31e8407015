package server

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDContextKey = "rhymist_request_id"
	requestIDHeader     = "X-Request-ID"
)

// requestIDMiddleware assigns a correlation id to every request, honoring
// an inbound X-Request-ID when the client supplies one.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			if generated, err := uuid.NewV7(); err == nil {
				requestID = generated.String()
			}
		}
		c.Set(requestIDContextKey, requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}
