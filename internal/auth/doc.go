// Package auth はIdP（Amazon Cognitoユーザープール）が発行したJWTの検証を提供する。
//
// 検証手順:
//   - JWKSエンドポイントから公開鍵を取得する（1時間キャッシュ）
//   - 未検証ヘッダーのkidに一致する公開鍵を探す
//   - 署名を検証する
//   - expクレームで有効期限を確認する
//   - audまたはclient_idクレームがアプリクライアントIDと一致することを確認する
package auth
