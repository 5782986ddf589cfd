package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/nao1215/tenantgate/pkg/httpclient"
)

// 検証エラー。401レスポンスの理由としてそのまま返される。
var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrMissingKeyID     = errors.New("token header missing kid")
	ErrKeyNotFound      = errors.New("public key not found in JWKS")
	ErrSignatureInvalid = errors.New("signature verification failed")
	ErrTokenExpired     = errors.New("token expired")
	ErrAudienceMismatch = errors.New("token was not issued for this client")
)

// supportedAlgorithms はIdPが使用する非対称鍵の署名アルゴリズム。
// HS256などの共通鍵方式は公開鍵を秘密鍵として悪用されるため受け付けない。
var supportedAlgorithms = []string{"RS256", "RS384", "RS512", "PS256", "PS384", "PS512", "ES256", "ES384", "ES512"}

// Verifier はJWKSの公開鍵でベアラートークンを検証する。
type Verifier struct {
	// clientID はaud/client_idクレームと照合するアプリクライアントID。
	clientID string
	// keys はJWKSの公開鍵キャッシュ。
	keys *keyCache
	// now は現在時刻を返す関数。テストで差し替える。
	now func() time.Time
	// parser はJWTパーサー。クレーム検証は自前で行う。
	parser *jwt.Parser
}

// jwksTimeout はJWKS取得のタイムアウト。
const jwksTimeout = 10 * time.Second

// Option はVerifierの設定を変更する関数。
type Option func(*Verifier)

// WithClock は現在時刻を返す関数を差し替える。
// 有効期限の判定と公開鍵キャッシュの両方に使用される。
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
		v.keys.now = now
	}
}

// WithKeyTTL は公開鍵キャッシュの有効期間を変更する。
func WithKeyTTL(ttl time.Duration) Option {
	return func(v *Verifier) {
		v.keys.ttl = ttl
	}
}

// WithHTTPClient はJWKS取得に使うHTTPクライアントを差し替える。
// タイムアウトは jwksTimeout のまま維持する。
func WithHTTPClient(hc *http.Client) Option {
	return func(v *Verifier) {
		v.keys.client = httpclient.New(v.keys.client.BaseURL(),
			httpclient.WithHTTPClient(hc),
			httpclient.WithTimeout(jwksTimeout),
		)
	}
}

// NewVerifier は新しいVerifierを生成する。
// jwksURLにはIdPのJWKSエンドポイント、clientIDにはアプリクライアントIDを指定する。
func NewVerifier(jwksURL, clientID string, logger *zap.Logger, opts ...Option) *Verifier {
	v := &Verifier{
		clientID: clientID,
		keys:     newKeyCache(httpclient.New(jwksURL, httpclient.WithTimeout(jwksTimeout)), logger),
		now:      time.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods(supportedAlgorithms),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify はトークンを検証し、デコードしたクレームを返す。
func (v *Verifier) Verify(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	token, err := v.parser.ParseWithClaims(tokenString, jwt.MapClaims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrMissingKeyID
		}
		key, ok := v.keys.lookup(ctx, kid)
		if !ok {
			return nil, ErrKeyNotFound
		}
		if key.Algorithm != "" && key.Algorithm != t.Method.Alg() {
			return nil, fmt.Errorf("%w: key algorithm %s does not match token algorithm %s", ErrSignatureInvalid, key.Algorithm, t.Method.Alg())
		}
		return key.Key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingKeyID):
			return nil, ErrMissingKeyID
		case errors.Is(err, ErrKeyNotFound):
			return nil, ErrKeyNotFound
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		default:
			return nil, ErrSignatureInvalid
		}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrMalformedToken
	}
	if err := v.validateClaims(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// validateClaims は有効期限と発行先クライアントを確認する。
func (v *Verifier) validateClaims(claims jwt.MapClaims) error {
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || v.now().After(exp.Time) {
		return ErrTokenExpired
	}

	if v.clientID == "" {
		return ErrAudienceMismatch
	}
	// IDトークンはaud、アクセストークンはclient_idにクライアントIDを持つ
	if audiences, err := claims.GetAudience(); err == nil {
		for _, aud := range audiences {
			if aud == v.clientID {
				return nil
			}
		}
	}
	if clientID, ok := claims["client_id"].(string); ok && clientID == v.clientID {
		return nil
	}
	return ErrAudienceMismatch
}
