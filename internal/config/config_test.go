package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoad はLoad関数を検証する。
// t.Setenvを使用するため並列実行しない。
func TestLoad(t *testing.T) {
	t.Run("設定が無い場合は既定値が使われること", func(t *testing.T) {
		s, err := Load("")
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if s.ProjectName != "SaaS Starter" {
			t.Errorf("ProjectName = %q, want %q", s.ProjectName, "SaaS Starter")
		}
		if s.APIV1Str != "/api/v1" {
			t.Errorf("APIV1Str = %q, want %q", s.APIV1Str, "/api/v1")
		}
		if s.AWSRegion != "us-east-1" {
			t.Errorf("AWSRegion = %q, want %q", s.AWSRegion, "us-east-1")
		}
		if s.GeminiModel != "gemini-flash-latest" {
			t.Errorf("GeminiModel = %q, want %q", s.GeminiModel, "gemini-flash-latest")
		}
		if len(s.AllowedOrigins) != 2 || s.AllowedOrigins[0] != "http://localhost:5173" {
			t.Errorf("AllowedOrigins = %v", s.AllowedOrigins)
		}
	})

	t.Run("存在しない.envファイルはエラーにならないこと", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
	})

	t.Run(".envファイルの値が読み込まれ環境変数が優先されること", func(t *testing.T) {
		envFile := filepath.Join(t.TempDir(), ".env")
		content := "COGNITO_USER_POOL_ID=us-east-1_abc\nCOGNITO_CLIENT_ID=file-client\nLINEAR_TEAM_ID=team-1\n"
		if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
			t.Fatalf("テスト用.envの作成に失敗: %v", err)
		}
		t.Setenv("COGNITO_CLIENT_ID", "env-client")
		t.Setenv("ALLOWED_ORIGINS", " https://a.example.com , ,https://b.example.com")

		s, err := Load(envFile)
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if s.CognitoUserPoolID != "us-east-1_abc" {
			t.Errorf("CognitoUserPoolID = %q, want %q", s.CognitoUserPoolID, "us-east-1_abc")
		}
		if s.CognitoClientID != "env-client" {
			t.Errorf("CognitoClientID = %q, want %q", s.CognitoClientID, "env-client")
		}
		if s.LinearTeamID != "team-1" {
			t.Errorf("LinearTeamID = %q, want %q", s.LinearTeamID, "team-1")
		}
		want := []string{"https://a.example.com", "https://b.example.com"}
		if len(s.AllowedOrigins) != len(want) {
			t.Fatalf("AllowedOrigins = %v, want %v", s.AllowedOrigins, want)
		}
		for i := range want {
			if s.AllowedOrigins[i] != want[i] {
				t.Errorf("AllowedOrigins[%d] = %q, want %q", i, s.AllowedOrigins[i], want[i])
			}
		}
	})
}

// TestJWKSEndpoint はJWKSEndpointを検証する。
func TestJWKSEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("CognitoのURLが導出されること", func(t *testing.T) {
		t.Parallel()

		s := &Settings{AWSRegion: "ap-northeast-1", CognitoUserPoolID: "ap-northeast-1_XYZ"}
		want := "https://cognito-idp.ap-northeast-1.amazonaws.com/ap-northeast-1_XYZ/.well-known/jwks.json"
		if got := s.JWKSEndpoint(); got != want {
			t.Errorf("JWKSEndpoint() = %q, want %q", got, want)
		}
	})

	t.Run("JWKS_URLが設定されていれば優先されること", func(t *testing.T) {
		t.Parallel()

		s := &Settings{AWSRegion: "us-east-1", JWKSURL: "http://localhost:9999/jwks.json"}
		if got := s.JWKSEndpoint(); got != "http://localhost:9999/jwks.json" {
			t.Errorf("JWKSEndpoint() = %q", got)
		}
	})
}
