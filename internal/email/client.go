// Package email はW-9依頼メールの送信機能を提供する。
// 送信はResend互換のトランザクションメールAPIに委譲する。
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	// DefaultEndpoint はメールAPIの既定のベースURL。
	DefaultEndpoint = "https://api.resend.com"
	// maxResponseSize はAPIレスポンスとして読み取る最大バイト数。
	maxResponseSize = 1 << 20
)

// Message は送信するメール1通分の内容。
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

// Client はトランザクションメールAPIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
	apiKey     string
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientには本番ではSSRF防止機能付きのクライアントを渡す。
func NewClient(httpClient *http.Client, logger *slog.Logger, endpoint, apiKey string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
	}
}

// sendResponse はメール送信APIの成功レスポンス。
type sendResponse struct {
	ID string `json:"id"`
}

// Send はメールを1通送信し、APIが払い出したメールIDを返す。
// 2xx以外のステータスはエラーとして扱う。再送は行わない。
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("メール本文のエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Signica/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("メールAPIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("メールAPIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("body", truncate(string(body), 512)),
		)
		return "", fmt.Errorf("メールAPIがステータス %d を返しました", resp.StatusCode)
	}

	var result sendResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return result.ID, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
