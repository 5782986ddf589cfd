package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// TokenVerifier はベアラートークンを検証してクレームを返す。
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (jwt.MapClaims, error)
}

// ginキー。
const (
	keyClaims = "claims"
	keyUserID = "user_id"
)

// abortUnauthorized は401レスポンスを返してリクエストを中断する。
func abortUnauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": detail,
	})
}

// Auth はAuthorizationヘッダーのベアラートークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストに "claims" と "user_id"（subクレーム）を設定する。
// 失敗理由に関わらず401を返す。
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Not authenticated")
			return
		}

		scheme, tokenString, found := strings.Cut(authHeader, " ")
		tokenString = strings.TrimSpace(tokenString)
		if !found || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			abortUnauthorized(c, "Invalid authentication credentials: bearer token required")
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), tokenString)
		if err != nil {
			abortUnauthorized(c, "Invalid authentication credentials: "+err.Error())
			return
		}

		c.Set(keyClaims, claims)
		if sub, err := claims.GetSubject(); err == nil {
			c.Set(keyUserID, sub)
		}
		c.Next()
	}
}

// GetClaims はGinコンテキストから検証済みクレームを取得する。
// Authミドルウェアが事前に適用されている必要がある。
func GetClaims(c *gin.Context) jwt.MapClaims {
	v, _ := c.Get(keyClaims)
	if claims, ok := v.(jwt.MapClaims); ok {
		return claims
	}
	return nil
}

// GetUserID はGinコンテキストからユーザーID（subクレーム）を取得する。
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get(keyUserID)
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}
