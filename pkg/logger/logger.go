// Package logger はzapによる構造化ログ（JSON形式）の初期化を提供する。
//
// ログはログ収集基盤での解析を前提に、1行1JSONで標準出力へ書き出す。
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New は指定されたレベルで出力するJSONロガーを生成する。
// levelには "debug", "info", "warn", "error" のいずれかを指定する。空文字列はinfoとして扱う。
func New(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("ログレベルの解析に失敗: %w", err)
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "asctime"
	cfg.EncoderConfig.LevelKey = "levelname"
	cfg.EncoderConfig.NameKey = "name"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout"}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("ロガーの生成に失敗: %w", err)
	}
	return l, nil
}

// Nop は何も出力しないロガーを返す。テストや依存の組み立てで使う。
func Nop() *zap.Logger {
	return zap.NewNop()
}
