package middleware

import "net/http"

// corsAllowedHeaders はフロントエンドが送るリクエストヘッダー。
// 状態変更リクエストにはCSRFトークンヘッダーが必須のため含める。
const corsAllowedHeaders = "Content-Type, " + csrfHeaderName

// corsExposedHeaders はフロントエンドから参照させるレスポンスヘッダー。
// W-9ダウンロードのファイル名をContent-Dispositionから取り出せるようにする。
const corsExposedHeaders = "Content-Disposition, X-Request-Id"

// NewCORSMiddleware は指定されたオリジンに対するCORSミドルウェアを返す。
// credentials送信と共存するため、ワイルドカード(*)は使用しない。
// OPTIONSプリフライトリクエストには204で応答する。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowedOrigin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			h.Set("Access-Control-Expose-Headers", corsExposedHeaders)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
