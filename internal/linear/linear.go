// Package linear はLinearのGraphQL APIでイシューを作成する。
package linear

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/nao1215/tenantgate/pkg/httpclient"
	"github.com/nao1215/tenantgate/pkg/metrics"
)

// DefaultAPIURL はLinear GraphQL APIの既定エンドポイント。
const DefaultAPIURL = "https://api.linear.app/graphql"

// relayName はメトリクスに記録する中継先の名前。
const relayName = "linear"

// ErrNotConfigured はAPIキーまたはチームIDが設定されていないことを表す。
var ErrNotConfigured = errors.New("linear API key or team ID not configured")

// issueCreateMutation はイシュー作成のGraphQLミューテーション。
const issueCreateMutation = `mutation IssueCreate($input: IssueCreateInput!) {
  issueCreate(input: $input) {
    success
    issue {
      id
      title
      url
    }
  }
}`

// APIError はGraphQLレスポンスに含まれるエラー。
type APIError struct {
	// Message は最初のエラーのメッセージ。
	Message string
}

// Error はエラーメッセージを返す。
func (e *APIError) Error() string {
	return e.Message
}

// IssueInput はイシュー作成の入力。
type IssueInput struct {
	// Title はイシューのタイトル。
	Title string
	// Description はイシューの説明（Markdown）。
	Description string
	// Priority は優先度（0: なし、1: 緊急 〜 4: 低）。
	Priority int
}

// Issue は作成されたイシュー。
type Issue struct {
	// ID はイシューのID。
	ID string
	// Title はイシューのタイトル。
	Title string
	// URL はイシューのURL。
	URL string
}

// graphQLRequest はGraphQLのリクエストボディ。
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// Client はLinear APIクライアント。
type Client struct {
	http    *httpclient.Client
	teamID  string
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewClient は新しいLinearクライアントを生成する。
// apiKeyかteamIDが空の場合、CreateIssueは ErrNotConfigured を返す。
func NewClient(apiURL, apiKey, teamID string, logger *zap.Logger, m *metrics.Metrics, opts ...httpclient.Option) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	c := &Client{teamID: teamID, logger: logger, metrics: m}
	if apiKey != "" && teamID != "" {
		// Linearの個人APIキーはBearer接頭辞を付けずに送る
		opts = append([]httpclient.Option{httpclient.WithHeader("Authorization", apiKey)}, opts...)
		c.http = httpclient.New(apiURL, opts...)
	}
	return c
}

// Configured はAPIキーとチームIDが設定されているかを返す。
func (c *Client) Configured() bool {
	return c.http != nil
}

// CreateIssue はイシューを作成する。
// GraphQLのエラーは *APIError として返す。
func (c *Client) CreateIssue(ctx context.Context, in IssueInput) (*Issue, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	req := graphQLRequest{
		Query: issueCreateMutation,
		Variables: map[string]any{
			"input": map[string]any{
				"teamId":      c.teamID,
				"title":       in.Title,
				"description": in.Description,
				"priority":    in.Priority,
			},
		},
	}
	body, err := c.http.PostRaw(ctx, "", req)
	if err != nil {
		return nil, fmt.Errorf("イシュー作成リクエストに失敗: %w", err)
	}

	if msg := gjson.GetBytes(body, "errors.0.message"); msg.Exists() {
		return nil, &APIError{Message: msg.String()}
	}
	issue := gjson.GetBytes(body, "data.issueCreate.issue")
	if !issue.Exists() || issue.Type == gjson.Null {
		return nil, &APIError{Message: "issueCreate returned no issue"}
	}
	return &Issue{
		ID:    issue.Get("id").String(),
		Title: issue.Get("title").String(),
		URL:   issue.Get("url").String(),
	}, nil
}

// IssueURL はイシューを作成し、そのURLを返す。
// 失敗した場合は、失敗内容を説明する文字列を返す。
func (c *Client) IssueURL(ctx context.Context, title, description string, priority int) string {
	issue, err := c.CreateIssue(ctx, IssueInput{Title: title, Description: description, Priority: priority})
	if err == nil {
		c.metrics.ObserveRelay(relayName, metrics.OutcomeSuccess)
		return issue.URL
	}

	if errors.Is(err, ErrNotConfigured) {
		c.metrics.ObserveRelay(relayName, metrics.OutcomeNotConfigured)
		return "Linear configuration missing."
	}
	c.metrics.ObserveRelay(relayName, metrics.OutcomeError)

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.logger.Warn("Linear APIがエラーを返しました", zap.String("message", apiErr.Message))
		return "Linear API Error: " + apiErr.Message
	}
	c.logger.Error("Linearイシューの作成に失敗しました", zap.Error(err))
	return "Failed to create Linear issue: " + httpclient.Describe(err)
}
