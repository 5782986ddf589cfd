// Package tenant はリクエスト単位のテナント識別子を扱う。
//
// テナントIDは X-Tenant-ID ヘッダーから読み取り、そのリクエストのcontext.Contextにのみ保持する。
// ヘッダーが無い場合は DefaultID（"public"）になる。ヘッダーが空文字列で送られた場合は空のまま扱う。
// テナントの検証や登録簿は持たない。
package tenant

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderName はテナントIDを受け取るHTTPヘッダー名。
	HeaderName = "X-Tenant-ID"
	// DefaultID はヘッダーが無い場合のテナントID。
	DefaultID = "public"
)

// contextKey はコンテキストキーの型。
type contextKey struct{}

// ginKey はGinコンテキストにテナントIDを格納するキー。
const ginKey = "tenant_id"

// WithID はコンテキストにテナントIDを設定する。
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext はコンテキストからテナントIDを取得する。
// 設定されていない場合は DefaultID を返す。
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return DefaultID
}

// FromGin はGinコンテキストからテナントIDを取得する。
func FromGin(c *gin.Context) string {
	if v, ok := c.Get(ginKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return FromContext(c.Request.Context())
}

// Middleware は X-Tenant-ID ヘッダーを読み取り、リクエストのコンテキストに設定するGinミドルウェアを返す。
// ヘッダーが存在しない場合のみ DefaultID を使う。
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := DefaultID
		if vals, ok := c.Request.Header[http.CanonicalHeaderKey(HeaderName)]; ok && len(vals) > 0 {
			id = vals[0]
		}
		c.Request = c.Request.WithContext(WithID(c.Request.Context(), id))
		c.Set(ginKey, id)
		c.Next()
	}
}
