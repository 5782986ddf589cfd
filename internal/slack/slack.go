// Package slack はSlackのIncoming Webhookへ通知を送信する。
package slack

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nao1215/tenantgate/pkg/httpclient"
	"github.com/nao1215/tenantgate/pkg/metrics"
)

// relayName はメトリクスに記録する中継先の名前。
const relayName = "slack"

// ErrNotConfigured はWebhook URLが設定されていないことを表す。
var ErrNotConfigured = errors.New("slack webhook URL not configured")

// message はWebhookに送信するペイロード。
type message struct {
	Text string `json:"text"`
}

// Notifier はSlack Webhookへの通知を送信する。
type Notifier struct {
	http    *httpclient.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewNotifier は新しいNotifierを生成する。webhookURLが空の場合は通知しない。
func NewNotifier(webhookURL string, logger *zap.Logger, m *metrics.Metrics, opts ...httpclient.Option) *Notifier {
	n := &Notifier{logger: logger, metrics: m}
	if webhookURL != "" {
		n.http = httpclient.New(webhookURL, opts...)
	}
	return n
}

// Configured はWebhook URLが設定されているかを返す。
func (n *Notifier) Configured() bool {
	return n.http != nil
}

// Send はテキストをWebhookへ送信する。
func (n *Notifier) Send(ctx context.Context, text string) error {
	if !n.Configured() {
		return ErrNotConfigured
	}
	// Webhookは "ok" をプレーンテキストで返すため、レスポンスは解析しない
	if err := n.http.PostJSON(ctx, "", message{Text: text}, nil); err != nil {
		return fmt.Errorf("Slack通知の送信に失敗: %w", err)
	}
	return nil
}

// Notify はテキストを送信し、送信できたかを返す。
// 未設定や失敗はログに記録し、falseを返す。
func (n *Notifier) Notify(ctx context.Context, text string) bool {
	err := n.Send(ctx, text)
	switch {
	case errors.Is(err, ErrNotConfigured):
		n.metrics.ObserveRelay(relayName, metrics.OutcomeNotConfigured)
		n.logger.Warn("Slack Webhook URLが設定されていません")
		return false
	case err != nil:
		n.metrics.ObserveRelay(relayName, metrics.OutcomeError)
		n.logger.Error("Slack通知に失敗しました", zap.Error(err))
		return false
	}
	n.metrics.ObserveRelay(relayName, metrics.OutcomeSuccess)
	return true
}
