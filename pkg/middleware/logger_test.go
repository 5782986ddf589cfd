package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nao1215/tenantgate/pkg/tenant"
)

// TestLogger はLoggerミドルウェアを検証する。
func TestLogger(t *testing.T) {
	t.Parallel()

	newRouter := func(l *zap.Logger) *gin.Engine {
		router := gin.New()
		router.Use(RequestID(), tenant.Middleware(), Logger(l))
		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		})
		router.GET("/boom", func(c *gin.Context) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "upstream"})
		})
		return router
	}

	t.Run("アクセスログにテナントIDとリクエストIDが含まれること", func(t *testing.T) {
		t.Parallel()

		core, logs := observer.New(zapcore.DebugLevel)
		req := httptest.NewRequest(http.MethodGet, "/boom", nil)
		req.Header.Set("X-Tenant-ID", "acme")
		req.Header.Set("X-Request-ID", "rid-1")
		newRouter(zap.New(core)).ServeHTTP(httptest.NewRecorder(), req)

		entries := logs.All()
		if len(entries) != 1 {
			t.Fatalf("ログ件数 = %d, want 1", len(entries))
		}
		e := entries[0]
		if e.Level != zapcore.ErrorLevel {
			t.Errorf("Level = %v, want %v", e.Level, zapcore.ErrorLevel)
		}
		fields := e.ContextMap()
		if fields["tenant_id"] != "acme" {
			t.Errorf("tenant_id = %v, want %q", fields["tenant_id"], "acme")
		}
		if fields["request_id"] != "rid-1" {
			t.Errorf("request_id = %v, want %q", fields["request_id"], "rid-1")
		}
		if fields["status"] != int64(http.StatusBadGateway) {
			t.Errorf("status = %v, want %d", fields["status"], http.StatusBadGateway)
		}
	})

	t.Run("ヘルスチェックはinfoレベルでは出力されないこと", func(t *testing.T) {
		t.Parallel()

		core, logs := observer.New(zapcore.InfoLevel)
		newRouter(zap.New(core)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

		if logs.Len() != 0 {
			t.Errorf("ログ件数 = %d, want 0", logs.Len())
		}
	})
}
