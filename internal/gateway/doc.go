// Package gateway はマルチテナントSaaSバックエンドのHTTPサーバーを提供する。
//
// Cognitoが発行したJWTで利用者を認証し、X-Tenant-IDヘッダーでテナントを識別する。
// 認証済みリクエストは生成AI（Gemini）、イシュートラッカー（Linear）、
// チャット通知（Slack）の各外部APIへ中継する。
package gateway
