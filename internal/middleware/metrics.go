package middleware

import (
	"net/http"
	"time"
)

// HTTPRecorder はHTTPレスポンスのメトリクスを記録するインターフェース。
// metrics.Collectorが実装する。
type HTTPRecorder interface {
	RecordHTTPResponse(statusCode int, duration time.Duration)
}

// NewMetricsMiddleware はレスポンスのステータスコードと処理時間を記録するミドルウェアを返す。
func NewMetricsMiddleware(recorder HTTPRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			recorder.RecordHTTPResponse(rec.statusCode, time.Since(start))
		})
	}
}
