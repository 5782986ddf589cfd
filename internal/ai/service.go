package ai

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/nao1215/tenantgate/pkg/httpclient"
	"github.com/nao1215/tenantgate/pkg/metrics"
)

// relayName はメトリクスに記録する中継先の名前。
const relayName = "gemini"

// summarizePrefix は要約用のプロンプト接頭辞。
const summarizePrefix = "Summarize the following text:\n\n"

// Service は生成AIの呼び出し結果をレスポンス用の文字列に変換する。
type Service struct {
	client  *Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewService は新しいServiceを生成する。metricsはnilでもよい。
func NewService(client *Client, logger *zap.Logger, m *metrics.Metrics) *Service {
	if client.Configured() {
		logger.Info("Geminiを設定しました", zap.String("model", client.Model()))
	}
	return &Service{client: client, logger: logger, metrics: m}
}

// GenerateText はプロンプトからテキストを生成する。
// APIキー未設定や呼び出し失敗の場合も、説明文字列を返す。
func (s *Service) GenerateText(ctx context.Context, prompt string) string {
	text, err := s.client.Generate(ctx, prompt)
	switch {
	case errors.Is(err, ErrNotConfigured):
		s.metrics.ObserveRelay(relayName, metrics.OutcomeNotConfigured)
		return "Gemini API Key not configured."
	case err != nil:
		s.metrics.ObserveRelay(relayName, metrics.OutcomeError)
		s.logger.Error("テキスト生成に失敗しました", zap.Error(err))
		return "Error generating text: " + httpclient.Describe(err)
	}
	s.metrics.ObserveRelay(relayName, metrics.OutcomeSuccess)
	return text
}

// Summarize はテキストを要約する。
func (s *Service) Summarize(ctx context.Context, text string) string {
	return s.GenerateText(ctx, summarizePrefix+text)
}
