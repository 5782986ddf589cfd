// Package ai は生成AI（Google Gemini）へのテキスト生成の中継を提供する。
//
// Clientは Gemini REST API の generateContent と models 一覧を呼び出す。
// Serviceは結果や失敗をHTTPレスポンスにそのまま埋め込める文字列に変換する。
package ai
