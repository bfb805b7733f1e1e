package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/iamramakanthreddyk/mylab-platform-sub000/logging"
)

// Logger is a middleware that logs incoming HTTP requests. Denials and
// failures are logged at elevated levels so rejected access attempts stand
// out in the request log.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// Process request
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
			zap.String("user-agent", c.Request.UserAgent()),
		}
		for _, e := range c.Errors.Errors() {
			fields = append(fields, zap.String("error", e))
		}

		switch {
		case status >= 500:
			logger.Error("Request failed", fields...)
		case status >= 400:
			// Denied or rejected; the precise reason stays in the service logs.
			logger.Warn("Request rejected", fields...)
		default:
			logger.Info("Request processed", fields...)
		}
	}
}
