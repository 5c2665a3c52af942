package gateway

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chatstack/intentd/pkg/logger"
)

const headerRequestID = "X-Request-Id"

// RequestLogger attaches a request-scoped logger carrying the request id
// and logs completion with status and latency.
func RequestLogger(ids IDGenerator) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = ids.NewID()
		}
		c.Header(headerRequestID, requestID)

		log := logger.FromContext(c.Request.Context()).With("request_id", requestID)
		c.Request = c.Request.WithContext(logger.ContextWithLogger(c.Request.Context(), log))

		start := time.Now()
		c.Next()

		log.Debug("request completed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
