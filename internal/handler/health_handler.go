package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// defaultHealthTimeout はDB疎通確認のタイムアウト。
const defaultHealthTimeout = 3 * time.Second

// HealthChecker はDB疎通確認のインターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// HealthHandler はヘルスチェックのHTTPハンドラー。
type HealthHandler struct {
	checker HealthChecker
	timeout time.Duration
}

// NewHealthHandler はHealthHandlerを生成する。
// checkerがnilの場合はプロセスの生存のみを報告する。
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		timeout: defaultHealthTimeout,
	}
}

// Health はサーバーとDBの状態を返す。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.checker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		if err := h.checker.PingContext(ctx); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "unavailable",
				"database": "unreachable",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
