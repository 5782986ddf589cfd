package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// execute はルートコマンドを引数付きで実行し、実行時の状態と出力を返す。
func execute(t *testing.T, ctx context.Context, args ...string) (*runtime, string, error) {
	t.Helper()
	rt := &runtime{v: viper.New()}
	cmd := newRootCmd(rt)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return rt, out.String(), err
}

// 環境変数を変更するため並行実行しない。

func TestModelsCmd(t *testing.T) {
	t.Run("generateContent対応モデルを1行ずつ出力すること", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("x-goog-api-key") != "test-key" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			_, _ = io.WriteString(w, `{"models":[
				{"name":"models/gemini-flash-latest","supportedGenerationMethods":["generateContent"]},
				{"name":"models/text-embedding-004","supportedGenerationMethods":["embedContent"]}
			]}`)
		}))
		t.Cleanup(srv.Close)

		t.Setenv("GEMINI_API_KEY", "test-key")
		t.Setenv("GEMINI_BASE_URL", srv.URL)

		_, out, err := execute(t, context.Background(), "models", "--env-file", "")
		if err != nil {
			t.Fatalf("models error = %v", err)
		}
		if out != "models/gemini-flash-latest\n" {
			t.Errorf("output = %q, want %q", out, "models/gemini-flash-latest\n")
		}
	})

	t.Run("APIキーが無い場合はエラーを返すこと", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")

		_, _, err := execute(t, context.Background(), "models", "--env-file", "")
		if err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
			t.Errorf("models error = %v, want GEMINI_API_KEY error", err)
		}
	})
}

func TestLoadSettings(t *testing.T) {
	t.Run("フラグが環境変数と.envより優先されること", func(t *testing.T) {
		envFile := filepath.Join(t.TempDir(), ".env")
		content := "PORT=7000\nLINEAR_TEAM_ID=from-file\nLOG_LEVEL=warn\n"
		if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("PORT", "7500")
		t.Setenv("LINEAR_TEAM_ID", "from-env")

		rt, _, _ := execute(t, context.Background(), "models", "--env-file", envFile, "--port", "9000")
		if rt.settings == nil {
			t.Fatal("設定が読み込まれていない")
		}
		if rt.settings.Port != "9000" {
			t.Errorf("Port = %q, want %q", rt.settings.Port, "9000")
		}
		if rt.settings.LinearTeamID != "from-env" {
			t.Errorf("LinearTeamID = %q, want %q", rt.settings.LinearTeamID, "from-env")
		}
		if rt.settings.LogLevel != "warn" {
			t.Errorf("LogLevel = %q, want %q", rt.settings.LogLevel, "warn")
		}
	})

	t.Run("不正なログレベルはエラーを返すこと", func(t *testing.T) {
		_, _, err := execute(t, context.Background(), "models", "--env-file", "", "--log-level", "verbose")
		if err == nil {
			t.Fatal("error = nil, want log level error")
		}
	})
}

func TestServeCmd(t *testing.T) {
	t.Run("キャンセル済みのコンテキストではすぐに停止すること", func(t *testing.T) {
		t.Setenv("INCIDENT_DB_PATH", "")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, _, err := execute(t, ctx, "serve", "--env-file", "", "--port", "0"); err != nil {
			t.Errorf("serve error = %v, want nil", err)
		}
	})
}
