package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/leadflow/consent-service/internal/system/constants"
	"github.com/leadflow/consent-service/internal/system/log"
)

var correlationHeaders = []string{constants.CorrelationIDHeaderName, "X-Request-ID", "X-Trace-ID"}

// CorrelationIDMiddleware propagates or mints a correlation ID on the gin and request contexts.
func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := extractCorrelationID(c)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}
		c.Set(constants.ContextKeyCorrelationID, correlationID)
		c.Header(constants.CorrelationIDHeaderName, correlationID)
		c.Request = c.Request.WithContext(log.ContextWithCorrelationID(c.Request.Context(), correlationID))
		c.Next()
	}
}

func extractCorrelationID(c *gin.Context) string {
	for _, header := range correlationHeaders {
		if id := c.GetHeader(header); id != "" {
			return id
		}
	}
	return ""
}
