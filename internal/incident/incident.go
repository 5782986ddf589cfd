package incident

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nao1215/tenantgate/pkg/tenant"
)

// DefaultPriority は優先度が指定されなかった場合の値。
const DefaultPriority = 1

// 一覧取得の件数。
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ErrLedgerDisabled は台帳が設定されていないことを表す。
var ErrLedgerDisabled = errors.New("incident ledger is not configured")

// Report はインシデント報告の入力。
type Report struct {
	// Title は報告のタイトル。
	Title string
	// Description は報告の詳細。
	Description string
	// Priority はLinearの優先度（0〜4）。範囲外の値もそのまま中継する。
	Priority int
	// ReportedBy は報告者（JWTのsubクレーム）。
	ReportedBy string
}

// Result は報告の結果。
type Result struct {
	// LinearIssue は作成されたイシューのURL、または失敗内容。
	LinearIssue string `json:"linear_issue"`
	// SlackNotificationSent はSlackへ通知できたか。
	SlackNotificationSent bool `json:"slack_notification_sent"`
}

// Record は台帳に記録された報告。
type Record struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    int       `json:"priority"`
	LinearIssue string    `json:"linear_issue"`
	SlackSent   bool      `json:"slack_notification_sent"`
	ReportedBy  string    `json:"reported_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// IssueCreator はイシューを起票し、URLまたは失敗内容を返す。
type IssueCreator interface {
	IssueURL(ctx context.Context, title, description string, priority int) string
}

// Notifier はメッセージを通知し、送信できたかを返す。
type Notifier interface {
	Notify(ctx context.Context, text string) bool
}

// Service はインシデント報告を処理する。
type Service struct {
	issues   IssueCreator
	notifier Notifier
	store    *Store
	logger   *zap.Logger
	now      func() time.Time
}

// NewService は新しいServiceを生成する。storeがnilの場合は台帳に記録しない。
func NewService(issues IssueCreator, notifier Notifier, store *Store, logger *zap.Logger) *Service {
	return &Service{
		issues:   issues,
		notifier: notifier,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// LedgerEnabled は台帳が設定されているかを返す。
func (s *Service) LedgerEnabled() bool {
	return s.store != nil
}

// Report はイシューを起票してSlackに通知する。
// テナントはコンテキストから取得する。
func (s *Service) Report(ctx context.Context, r Report) Result {
	issueURL := s.issues.IssueURL(ctx, r.Title, r.Description, r.Priority)
	sent := s.notifier.Notify(ctx, FormatMessage(r.Title, r.Priority, issueURL))

	tenantID := tenant.FromContext(ctx)
	s.logger.Info("インシデントを報告しました",
		zap.String("tenant_id", tenantID),
		zap.String("title", r.Title),
		zap.Int("priority", r.Priority),
		zap.String("linear_issue", issueURL),
		zap.Bool("slack_notification_sent", sent),
	)

	if s.store != nil {
		rec := Record{
			ID:          uuid.NewString(),
			TenantID:    tenantID,
			Title:       r.Title,
			Description: r.Description,
			Priority:    r.Priority,
			LinearIssue: issueURL,
			SlackSent:   sent,
			ReportedBy:  r.ReportedBy,
			CreatedAt:   s.now(),
		}
		if err := s.store.Insert(ctx, rec); err != nil {
			s.logger.Error("インシデント台帳への記録に失敗しました",
				zap.String("tenant_id", tenantID),
				zap.Error(err),
			)
		}
	}

	return Result{LinearIssue: issueURL, SlackNotificationSent: sent}
}

// List はテナントの最近の報告を返す。
// limitが0以下なら DefaultListLimit、MaxListLimit を超えれば MaxListLimit とする。
func (s *Service) List(ctx context.Context, tenantID string, limit int) ([]Record, error) {
	if s.store == nil {
		return nil, ErrLedgerDisabled
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return s.store.List(ctx, tenantID, limit)
}

// FormatMessage はSlackに送信する報告メッセージを組み立てる。
func FormatMessage(title string, priority int, issueURL string) string {
	return fmt.Sprintf("🚨 *New Incident Reported*\n*Title*: %s\n*Priority*: %d\n*Linear Issue*: %s", title, priority, issueURL)
}
