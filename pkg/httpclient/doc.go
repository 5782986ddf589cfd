// Package httpclient は外部SaaS APIとのHTTP通信を行うクライアントを提供する。
//
// 生成AI API、課題管理API、チャットWebhook、IdPのJWKSエンドポイントなど、
// 全ての外部呼び出しでタイムアウトとエラー表現を統一する。
package httpclient
