// Package logger はアプリケーション全体のJSON構造化ログを設定する。
package logger

import (
	"io"
	"log/slog"
	"os"
)

// redactedValue はマスク済みの属性に出力する値。
const redactedValue = "[REDACTED]"

// sensitiveKeys はログに値を残してはならない属性キー。
// 納税者番号と署名はW-9の提出内容そのものであり、APIキーやセッションIDは資格情報にあたる。
var sensitiveKeys = map[string]struct{}{
	"ssn_ein":    {},
	"signature":  {},
	"api_key":    {},
	"session_id": {},
	"csrf_token": {},
}

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// writerが指定された場合はそのwriterに出力する。
// sensitiveKeysに該当する属性はグループ内でも値をマスクする。
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		ReplaceAttr: redactSensitive,
	})
	return slog.New(handler)
}

func redactSensitive(_ []string, a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[a.Key]; ok {
		return slog.String(a.Key, redactedValue)
	}
	return a
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// 本番ではos.Stdoutを渡すことを想定している。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(Setup(w))
}
