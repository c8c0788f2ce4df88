package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// logFields は内側のミドルウェアが確定させた値をアクセスログへ渡すための入れ物。
type logFields struct {
	userID string
}

var logFieldsContextKey = contextKey("log_fields")

// recordUserID はアクセスログに出力するユーザーIDを記録する。
// Loggingミドルウェアの外側で呼ばれた場合は何もしない。
func recordUserID(ctx context.Context, userID string) {
	if f, ok := ctx.Value(logFieldsContextKey).(*logFields); ok {
		f.userID = userID
	}
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
//
// 出力項目:
//   - method, path, status, duration_ms
//   - route: chiのルートパターン（/api/w9-requests/{id} など）
//   - trace_id: chimw.RequestIDが付与したID
//   - user_id: 認証済みの場合
//   - w9_request_id: URLに依頼IDを含むルートの場合
//
// クエリ文字列は出力しない。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			fields := &logFields{}
			r = r.WithContext(context.WithValue(r.Context(), logFieldsContextKey, fields))

			next.ServeHTTP(rec, r)

			durationMs := float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond)

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
			}

			if traceID := chimw.GetReqID(r.Context()); traceID != "" {
				attrs = append(attrs, slog.String("trace_id", traceID))
			}

			// ルーティング結果はnext実行後にRouteContextへ書き込まれる
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					attrs = append(attrs, slog.String("route", pattern))
				}
				if id := rctx.URLParam("id"); id != "" {
					attrs = append(attrs, slog.String("w9_request_id", id))
				}
			}

			// Sessionミドルウェアは内側で動くため、記録された値を優先する
			userID := fields.userID
			if userID == "" {
				userID, _ = UserIDFromContext(r.Context())
			}
			if userID != "" {
				attrs = append(attrs, slog.String("user_id", userID))
			}

			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "http_request", attrs...)
		})
	}
}
