package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leadflow/consent-service/internal/system/log"
	"github.com/leadflow/consent-service/internal/system/metrics"
)

// RequestLogger logs one line per request and records request latency.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())

		logger := log.WithContext(c.Request.Context()).With(log.String(log.LoggerKeyComponentName, "HTTP"))
		fields := []log.Field{
			log.String("method", c.Request.Method),
			log.String("route", route),
			log.Int("status", status),
			log.Duration("latency", elapsed),
			log.String("client_ip", c.ClientIP()),
		}
		if status >= 500 {
			logger.Error("Request failed", fields...)
			return
		}
		logger.Info("Request completed", fields...)
	}
}
