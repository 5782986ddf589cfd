// Package app はtenantgateコマンドのサブコマンドを提供する。
package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nao1215/tenantgate/internal/config"
	"github.com/nao1215/tenantgate/pkg/logger"
)

// runtime はサブコマンド間で共有する設定とロガー。
type runtime struct {
	v        *viper.Viper
	envFile  string
	settings *config.Settings
	logger   *zap.Logger
}

// NewRootCmd はtenantgateのルートコマンドを生成する。
// サブコマンドを省略した場合はserveを実行する。
func NewRootCmd() *cobra.Command {
	return newRootCmd(&runtime{v: viper.New()})
}

func newRootCmd(rt *runtime) *cobra.Command {

	rootCmd := &cobra.Command{
		Use:   "tenantgate",
		Short: "Multi-tenant SaaS backend relaying to Gemini, Linear and Slack",
		Long: `tenantgate authenticates requests with AWS Cognito issued JWTs, tags each
request with the tenant from the X-Tenant-ID header and relays work to
Google Gemini, Linear and a Slack incoming webhook.

Settings are read from an optional .env file and environment variables.
Command-line flags take precedence over both.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return rt.load()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, rt)
		},
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rt.envFile, "env-file", ".env", "path to a dotenv file (ignored when missing)")
	flags.String("port", "", "listen port (overrides PORT)")
	flags.String("log-level", "", "log level: debug, info, warn or error (overrides LOG_LEVEL)")
	for key, flag := range map[string]string{
		config.KeyPort:     "port",
		config.KeyLogLevel: "log-level",
	} {
		if err := rt.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("フラグ %s のバインドに失敗: %v", flag, err))
		}
	}

	rootCmd.AddCommand(newServeCmd(rt))
	rootCmd.AddCommand(newModelsCmd(rt))
	return rootCmd
}

// load は設定を読み込み、ロガーを初期化する。
func (rt *runtime) load() error {
	settings, err := config.LoadFrom(rt.v, rt.envFile)
	if err != nil {
		return err
	}
	rt.settings = settings

	l, err := logger.New(rt.settings.LogLevel)
	if err != nil {
		return fmt.Errorf("ロガーの初期化に失敗: %w", err)
	}
	rt.logger = l.Named(rt.settings.ProjectName)
	return nil
}
