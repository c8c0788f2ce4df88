package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// 送信結果の区分。メトリクスのラベルに使う。
const (
	OutcomeSent    = "sent"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Sender はメール1通を送信するインターフェース。
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Recorder は送信結果を記録するメトリクスのインターフェース。
type Recorder interface {
	RecordEmail(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordEmail(string) {}

// DispatcherConfig は依頼メール送信の設定。
type DispatcherConfig struct {
	BaseURL    string        // 公開サイトのベースURL
	From       string        // 差出人
	RequestTTL time.Duration // 本文に記載する有効期間
}

// Result は依頼メール送信の結果。
// APIキー未設定で送信を省略した場合もLinkは設定される。
type Result struct {
	Sent    bool
	Link    string
	EmailID string
}

// Dispatcher は依頼メールを組み立てて送信する。
type Dispatcher struct {
	sender   Sender
	logger   *slog.Logger
	recorder Recorder
	config   DispatcherConfig
}

// NewDispatcher はDispatcherを生成する。
// senderがnilの場合（APIキー未設定）は送信内容をログに記録するだけで成功として扱う。
func NewDispatcher(sender Sender, logger *slog.Logger, recorder Recorder, config DispatcherConfig) *Dispatcher {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Dispatcher{
		sender:   sender,
		logger:   logger,
		recorder: recorder,
		config:   config,
	}
}

// BuildLink は依頼IDから回答ページへのダイレクトリンクを生成する。
func (d *Dispatcher) BuildLink(requestID string) string {
	return fmt.Sprintf("%s/form/%s?direct=true",
		strings.TrimRight(d.config.BaseURL, "/"),
		url.PathEscape(requestID),
	)
}

// SendRequestEmail は依頼メールを送信する。
// 送信に失敗した場合はリンクを含むResultとエラーを返す。
func (d *Dispatcher) SendRequestEmail(ctx context.Context, requestID, vendorName, vendorEmail string) (Result, error) {
	link := d.BuildLink(requestID)
	result := Result{Link: link}

	if d.sender == nil {
		d.logger.Info("email api key is not configured; skipping send",
			slog.String("request_id", requestID),
			slog.String("to", vendorEmail),
			slog.String("link", link),
		)
		d.recorder.RecordEmail(OutcomeSkipped)
		return result, nil
	}

	html, text, err := renderRequest(requestTemplateData{
		VendorName:    vendorName,
		Link:          link,
		ExpiresInDays: int(d.config.RequestTTL.Hours() / 24),
	})
	if err != nil {
		d.recorder.RecordEmail(OutcomeFailed)
		return result, err
	}

	id, err := d.sender.Send(ctx, Message{
		From:    d.config.From,
		To:      []string{vendorEmail},
		Subject: requestSubject,
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		d.recorder.RecordEmail(OutcomeFailed)
		return result, fmt.Errorf("依頼メールの送信に失敗しました: %w", err)
	}

	d.recorder.RecordEmail(OutcomeSent)
	d.logger.Info("w9 request email sent",
		slog.String("request_id", requestID),
		slog.String("email_id", id),
	)
	result.Sent = true
	result.EmailID = id
	return result, nil
}
