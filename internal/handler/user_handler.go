package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/signica/internal/middleware"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Withdraw はユーザーの退会処理を実行する。
	// セッションを破棄した後、ユーザーを削除する。
	// identities、作成したW-9依頼とその提出フォームは外部キーで連鎖削除される。
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetupUserRoutes はユーザー管理関連のルーティングを設定したchi.Routerを返す。
func SetupUserRoutes(service UserServiceInterface) http.Handler {
	r := chi.NewRouter()
	h := NewUserHandler(service)

	r.Route("/api/users", func(r chi.Router) {
		r.Delete("/me", h.Withdraw)
	})

	return r
}
