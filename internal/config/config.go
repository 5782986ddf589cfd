// Package config はアプリケーション設定の読み込みを提供する。
//
// 設定は任意の .env ファイルと環境変数から読み込み、環境変数が優先される。
// キー名は大文字のまま（例: COGNITO_USER_POOL_ID）扱う。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// 設定キー。
const (
	KeyProjectName       = "PROJECT_NAME"
	KeyAPIV1Str          = "API_V1_STR"
	KeyPort              = "PORT"
	KeyAWSRegion         = "AWS_REGION"
	KeyCognitoUserPoolID = "COGNITO_USER_POOL_ID"
	KeyCognitoClientID   = "COGNITO_CLIENT_ID"
	KeyJWKSURL           = "JWKS_URL"
	KeyGeminiAPIKey      = "GEMINI_API_KEY"
	KeyGeminiModel       = "GEMINI_MODEL"
	KeyGeminiBaseURL     = "GEMINI_BASE_URL"
	KeyLinearAPIKey      = "LINEAR_API_KEY"
	KeyLinearTeamID      = "LINEAR_TEAM_ID"
	KeyLinearAPIURL      = "LINEAR_API_URL"
	KeySlackWebhookURL   = "SLACK_WEBHOOK_URL"
	KeyAllowedOrigins    = "ALLOWED_ORIGINS"
	KeyIncidentDBPath    = "INCIDENT_DB_PATH"
	KeyLogLevel          = "LOG_LEVEL"
)

// Settings はアプリケーション設定。
type Settings struct {
	// ProjectName はサービス名。
	ProjectName string
	// APIV1Str はバージョン付きAPIのパス接頭辞。
	APIV1Str string
	// Port はHTTPサーバーのリッスンポート。
	Port string

	// AWSRegion はCognitoユーザープールのリージョン。
	AWSRegion string
	// CognitoUserPoolID はCognitoユーザープールID。
	CognitoUserPoolID string
	// CognitoClientID はaud/client_idクレームと照合するアプリクライアントID。
	CognitoClientID string
	// JWKSURL はJWKSエンドポイントの上書き値。空の場合はCognitoのURLを導出する。
	JWKSURL string

	// GeminiAPIKey はGemini APIキー。空の場合は生成AI機能を無効にする。
	GeminiAPIKey string
	// GeminiModel は使用するモデル名。
	GeminiModel string
	// GeminiBaseURL はGemini APIのベースURL。
	GeminiBaseURL string

	// LinearAPIKey はLinear APIキー。
	LinearAPIKey string
	// LinearTeamID は課題を作成するLinearチームID。
	LinearTeamID string
	// LinearAPIURL はLinear GraphQLエンドポイント。
	LinearAPIURL string

	// SlackWebhookURL はSlack Incoming WebhookのURL。
	SlackWebhookURL string

	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// IncidentDBPath はインシデント台帳のSQLiteファイルパス。空の場合は台帳を無効にする。
	IncidentDBPath string
	// LogLevel はログレベル。
	LogLevel string
}

// SetDefaults はviperに既定値を登録する。
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyProjectName, "SaaS Starter")
	v.SetDefault(KeyAPIV1Str, "/api/v1")
	v.SetDefault(KeyPort, "8000")
	v.SetDefault(KeyAWSRegion, "us-east-1")
	v.SetDefault(KeyCognitoUserPoolID, "")
	v.SetDefault(KeyCognitoClientID, "")
	v.SetDefault(KeyJWKSURL, "")
	v.SetDefault(KeyGeminiAPIKey, "")
	v.SetDefault(KeyGeminiModel, "gemini-flash-latest")
	v.SetDefault(KeyGeminiBaseURL, "https://generativelanguage.googleapis.com")
	v.SetDefault(KeyLinearAPIKey, "")
	v.SetDefault(KeyLinearTeamID, "")
	v.SetDefault(KeyLinearAPIURL, "https://api.linear.app/graphql")
	v.SetDefault(KeySlackWebhookURL, "")
	v.SetDefault(KeyAllowedOrigins, "http://localhost:5173,https://d1v8dyw3he4vv.cloudfront.net")
	v.SetDefault(KeyIncidentDBPath, "")
	v.SetDefault(KeyLogLevel, "info")
}

// Load は .env ファイルと環境変数から設定を読み込む。
// envFileが空、またはファイルが存在しない場合は環境変数と既定値のみを使う。
func Load(envFile string) (*Settings, error) {
	return LoadFrom(viper.New(), envFile)
}

// LoadFrom はvに既定値、.env ファイル、環境変数を重ねて設定を読み込む。
// vに事前にバインドされたコマンドラインフラグは、変更されていれば最優先になる。
func LoadFrom(v *viper.Viper, envFile string) (*Settings, error) {
	SetDefaults(v)
	if err := ReadEnvFile(v, envFile); err != nil {
		return nil, err
	}
	v.AutomaticEnv()
	return FromViper(v), nil
}

// ReadEnvFile はdotenv形式のファイルをviperに読み込む。
// ファイルが存在しない場合はエラーにしない。
func ReadEnvFile(v *viper.Viper, envFile string) error {
	if envFile == "" {
		return nil
	}
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("設定ファイル %s の読み込みに失敗: %w", envFile, err)
	}
	return nil
}

// FromViper はviperの値からSettingsを組み立てる。
func FromViper(v *viper.Viper) *Settings {
	return &Settings{
		ProjectName:       v.GetString(KeyProjectName),
		APIV1Str:          strings.TrimRight(v.GetString(KeyAPIV1Str), "/"),
		Port:              v.GetString(KeyPort),
		AWSRegion:         v.GetString(KeyAWSRegion),
		CognitoUserPoolID: v.GetString(KeyCognitoUserPoolID),
		CognitoClientID:   v.GetString(KeyCognitoClientID),
		JWKSURL:           v.GetString(KeyJWKSURL),
		GeminiAPIKey:      v.GetString(KeyGeminiAPIKey),
		GeminiModel:       v.GetString(KeyGeminiModel),
		GeminiBaseURL:     strings.TrimRight(v.GetString(KeyGeminiBaseURL), "/"),
		LinearAPIKey:      v.GetString(KeyLinearAPIKey),
		LinearTeamID:      v.GetString(KeyLinearTeamID),
		LinearAPIURL:      v.GetString(KeyLinearAPIURL),
		SlackWebhookURL:   v.GetString(KeySlackWebhookURL),
		AllowedOrigins:    splitList(v.GetString(KeyAllowedOrigins)),
		IncidentDBPath:    v.GetString(KeyIncidentDBPath),
		LogLevel:          v.GetString(KeyLogLevel),
	}
}

// JWKSEndpoint はJWKSの取得先URLを返す。
// JWKS_URLが設定されていればそれを、無ければCognitoユーザープールのURLを返す。
func (s *Settings) JWKSEndpoint() string {
	if s.JWKSURL != "" {
		return s.JWKSURL
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s/.well-known/jwks.json", s.AWSRegion, s.CognitoUserPoolID)
}

// splitList はカンマ区切りの文字列を空要素を除いたスライスに変換する。
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
