// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// IdPが発行したベアラートークンの検証、リクエストID付与、アクセスログ、
// パニックリカバリ、CORS設定など、APIサーバー全体で共通して使用するミドルウェアを含む。
package middleware
