package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/tenantgate/internal/ai"
)

// newModelsCmd はgenerateContentに対応するGeminiモデルを一覧表示するmodelsコマンドを生成する。
func newModelsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List Gemini models that support text generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := ai.NewClient(rt.settings.GeminiBaseURL, rt.settings.GeminiAPIKey, rt.settings.GeminiModel)
			names, err := client.ListModels(cmd.Context())
			if errors.Is(err, ai.ErrNotConfigured) {
				return errors.New("GEMINI_API_KEY が設定されていません")
			}
			if err != nil {
				return fmt.Errorf("モデル一覧の取得に失敗: %w", err)
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
