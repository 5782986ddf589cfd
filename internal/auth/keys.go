package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/nao1215/tenantgate/pkg/httpclient"
)

// defaultKeyTTL は公開鍵キャッシュの有効期間。
const defaultKeyTTL = time.Hour

// publicKey はJWKSから取り出した公開鍵1件。
type publicKey struct {
	// KeyID はJWKのkid。
	KeyID string
	// Algorithm はJWKのalg。JWKSで省略されている場合は空文字列。
	Algorithm string
	// Key は署名検証に使う鍵（*rsa.PublicKey または *ecdsa.PublicKey）。
	Key any
}

// keyCache はJWKSの公開鍵を時間ベースでキャッシュする。
// 空、または最終取得から有効期間を過ぎた場合にのみ再取得する。
// 検証失敗によるキャッシュ破棄は行わない。
type keyCache struct {
	client *httpclient.Client
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu        sync.Mutex
	keys      []publicKey
	fetchedAt time.Time
}

// newKeyCache は新しい公開鍵キャッシュを生成する。
func newKeyCache(client *httpclient.Client, logger *zap.Logger) *keyCache {
	return &keyCache{
		client: client,
		ttl:    defaultKeyTTL,
		now:    time.Now,
		logger: logger,
	}
}

// get はキャッシュ済みの公開鍵を返す。必要なら再取得する。
// 取得に失敗した場合はログに記録し、古い鍵をそのまま返す。
// 同時にキャッシュミスしたリクエストはそれぞれ取得を行うことがあるが、結果は同じになる。
func (c *keyCache) get(ctx context.Context) []publicKey {
	c.mu.Lock()
	keys := c.keys
	stale := len(keys) == 0 || c.now().Sub(c.fetchedAt) > c.ttl
	c.mu.Unlock()

	if !stale {
		return keys
	}

	fetched, err := c.fetch(ctx)
	if err != nil {
		c.logger.Error("JWKSの取得に失敗しました",
			zap.String("url", c.client.BaseURL()),
			zap.Error(err),
		)
		return keys
	}

	c.mu.Lock()
	c.keys = fetched
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return fetched
}

// lookup はkidに一致する公開鍵を返す。
func (c *keyCache) lookup(ctx context.Context, kid string) (publicKey, bool) {
	for _, k := range c.get(ctx) {
		if k.KeyID == kid {
			return k, true
		}
	}
	return publicKey{}, false
}

// fetch はJWKSエンドポイントから公開鍵一覧を取得する。
// 解析できない鍵は読み飛ばす。
func (c *keyCache) fetch(ctx context.Context) ([]publicKey, error) {
	body, err := c.client.GetRaw(ctx, "")
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("JWKSのレスポンスがJSONではありません")
	}
	keysResult := gjson.GetBytes(body, "keys")
	if !keysResult.IsArray() {
		return nil, errors.New("JWKSにkeysが含まれていません")
	}

	var keys []publicKey
	for _, raw := range keysResult.Array() {
		kid := raw.Get("kid").String()
		key, err := jwk.ParseKey([]byte(raw.Raw))
		if err != nil {
			c.logger.Warn("JWKの解析に失敗したため読み飛ばします", zap.String("kid", kid), zap.Error(err))
			continue
		}
		var material any
		if err := jwk.Export(key, &material); err != nil {
			c.logger.Warn("JWKの鍵素材の取り出しに失敗したため読み飛ばします", zap.String("kid", kid), zap.Error(err))
			continue
		}
		keys = append(keys, publicKey{
			KeyID:     kid,
			Algorithm: raw.Get("alg").String(),
			Key:       material,
		})
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("JWKSに利用可能な鍵がありません（%d件中0件）", len(keysResult.Array()))
	}
	return keys, nil
}
