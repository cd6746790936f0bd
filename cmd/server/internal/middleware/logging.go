package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vnspeech/s2t-server/pkg/logger"
)

// RequestLogger 为每个请求注入 request_id 并写入结构化访问日志
// 服务端错误（5xx）记为 warn，便于在转写服务日志里直接过滤
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := uuid.NewString()
		c.Set("request_id", reqID)
		c.Writer.Header().Set("X-Request-ID", reqID)

		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"bytes_out", c.Writer.Size(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		if status >= 500 {
			logger.L().Warn("http_request", fields...)
			return
		}
		logger.L().Info("http_request", fields...)
	}
}
