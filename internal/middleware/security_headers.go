package middleware

import (
	"net/http"
	"strings"
)

// apiContentSecurityPolicy はJSONのみを返すAPIレスポンス向けのCSP。
const apiContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
// /api/ 配下は納税者番号を含み得るため、中間キャッシュとブラウザキャッシュへの保存を禁止する。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			if strings.HasPrefix(r.URL.Path, "/api/") {
				h.Set("Content-Security-Policy", apiContentSecurityPolicy)
				h.Set("Cache-Control", "no-store")
			}
			next.ServeHTTP(w, r)
		})
	}
}
