package ai

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nao1215/tenantgate/pkg/httpclient"
)

// ErrNotConfigured はAPIキーが設定されていないことを表す。
var ErrNotConfigured = errors.New("gemini API key not configured")

// DefaultModel は既定のモデル名。
const DefaultModel = "gemini-flash-latest"

// Client はGemini REST APIのクライアント。
type Client struct {
	// http はGemini APIへのHTTPクライアント。APIキー未設定の場合はnil。
	http *httpclient.Client
	// model は使用するモデル名。
	model string
}

// NewClient は新しいGeminiクライアントを生成する。
// apiKeyが空の場合、全ての呼び出しは ErrNotConfigured を返す。
func NewClient(baseURL, apiKey, model string, opts ...httpclient.Option) *Client {
	if model == "" {
		model = DefaultModel
	}
	c := &Client{model: strings.TrimPrefix(model, "models/")}
	if apiKey != "" {
		opts = append([]httpclient.Option{httpclient.WithHeader("x-goog-api-key", apiKey)}, opts...)
		c.http = httpclient.New(strings.TrimRight(baseURL, "/"), opts...)
	}
	return c
}

// Configured はAPIキーが設定されているかを返す。
func (c *Client) Configured() bool {
	return c.http != nil
}

// Model は使用するモデル名を返す。
func (c *Client) Model() string {
	return c.model
}

// generateRequest はgenerateContentのリクエストボディ。
type generateRequest struct {
	Contents []content `json:"contents"`
}

// content は会話の1ターン。
type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

// part はテキストパート。
type part struct {
	Text string `json:"text"`
}

// Generate はプロンプトからテキストを生成する。
// 最初の候補のテキストパートを連結して返す。
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	req := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", url.PathEscape(c.model))
	body, err := c.http.PostRaw(ctx, path, req)
	if err != nil {
		return "", apiError(err)
	}

	candidate := gjson.GetBytes(body, "candidates.0")
	if !candidate.Exists() {
		if reason := gjson.GetBytes(body, "promptFeedback.blockReason").String(); reason != "" {
			return "", fmt.Errorf("prompt was blocked: %s", reason)
		}
		return "", errors.New("response contained no candidates")
	}

	var sb strings.Builder
	for _, p := range candidate.Get("content.parts").Array() {
		sb.WriteString(p.Get("text").String())
	}
	if sb.Len() == 0 {
		if reason := candidate.Get("finishReason").String(); reason != "" {
			return "", fmt.Errorf("response contained no text (finish reason: %s)", reason)
		}
		return "", errors.New("response contained no text")
	}
	return sb.String(), nil
}

// modelList はmodels一覧APIのレスポンス。
type modelList struct {
	Models []struct {
		Name                       string   `json:"name"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
	NextPageToken string `json:"nextPageToken"`
}

// ListModels はgenerateContentに対応するモデル名の一覧を返す。
// ページングされた一覧を最後まで辿る。
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var names []string
	pageToken := ""
	for {
		path := "/v1beta/models?pageSize=1000"
		if pageToken != "" {
			path += "&pageToken=" + url.QueryEscape(pageToken)
		}
		var page modelList
		if err := c.http.GetJSON(ctx, path, &page); err != nil {
			return nil, apiError(err)
		}
		for _, m := range page.Models {
			if slices.Contains(m.SupportedGenerationMethods, "generateContent") {
				names = append(names, m.Name)
			}
		}
		if page.NextPageToken == "" {
			return names, nil
		}
		pageToken = page.NextPageToken
	}
}

// apiError はGemini APIのエラーレスポンスからメッセージを取り出す。
func apiError(err error) error {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		if msg := gjson.GetBytes(httpErr.Body, "error.message").String(); msg != "" {
			return fmt.Errorf("gemini API error (status %d): %s", httpErr.StatusCode, msg)
		}
	}
	return err
}
