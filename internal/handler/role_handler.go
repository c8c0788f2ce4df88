package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/signica/internal/middleware"
	"github.com/hitoshi/signica/internal/role"
)

// RoleResolver はロール判定のインターフェース。
type RoleResolver interface {
	Resolve(ctx context.Context, userID, email string) (role.Result, error)
}

// RoleHandler はロール判定のHTTPハンドラー。
type RoleHandler struct {
	resolver RoleResolver
	users    UserFinder
}

// NewRoleHandler はRoleHandlerを生成する。
func NewRoleHandler(resolver RoleResolver, users UserFinder) *RoleHandler {
	return &RoleHandler{
		resolver: resolver,
		users:    users,
	}
}

// roleResponse はロール判定のレスポンス。
type roleResponse struct {
	role.Result
	DashboardPath string `json:"dashboardPath"`
}

// GetRole はログインユーザーのロールと初期表示ダッシュボードを返す。
// 判定に失敗した場合はロールなしとして扱い、エラーにはしない。
// GET /api/me/role
func (h *RoleHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	result := role.Result{PrimaryRole: role.PrimaryRoleNone}

	user, err := h.users.FindByID(r.Context(), userID)
	switch {
	case err != nil:
		slog.Warn("failed to load user for role resolution",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	case user == nil:
		slog.Warn("user not found for role resolution", slog.String("user_id", userID))
	default:
		resolved, err := h.resolver.Resolve(r.Context(), userID, user.Email)
		if err != nil {
			slog.Warn("failed to resolve role",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		} else {
			result = resolved
		}
	}

	writeJSON(w, http.StatusOK, roleResponse{
		Result:        result,
		DashboardPath: role.DefaultDashboard(result.PrimaryRole),
	})
}
