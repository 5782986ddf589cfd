package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nao1215/tenantgate/pkg/tenant"
)

// Logger はアクセスログを構造化ログとして出力するGinミドルウェアを返す。
// ヘルスチェックの成功はノイズになるためdebugレベルで出力する。
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		level := zapcore.InfoLevel
		switch {
		case status >= http.StatusInternalServerError:
			level = zapcore.ErrorLevel
		case status >= http.StatusBadRequest:
			level = zapcore.WarnLevel
		case path == "/health":
			level = zapcore.DebugLevel
		}

		if ce := logger.Check(level, "HTTPリクエスト"); ce != nil {
			ce.Write(
				zap.String("method", c.Request.Method),
				zap.String("path", path),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("client_ip", c.ClientIP()),
				zap.String("request_id", GetRequestID(c)),
				zap.String("tenant_id", tenant.FromGin(c)),
			)
		}
	}
}
