package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/signica/internal/email"
	"github.com/hitoshi/signica/internal/middleware"
	"github.com/hitoshi/signica/internal/model"
)

// W9ServiceInterface はW-9依頼ハンドラーが必要とするサービスインターフェース。
type W9ServiceInterface interface {
	// Create は依頼を作成する。
	Create(ctx context.Context, vendorName, vendorEmail, createdBy string) (*model.W9Request, error)
	// ListForCreator は作成した依頼を新しい順に返す。
	ListForCreator(ctx context.Context, userID string) ([]*model.W9Request, error)
	// ListForRecipientEmail は宛先メールアドレスに一致する依頼を返す。
	ListForRecipientEmail(ctx context.Context, email string) ([]*model.W9Request, error)
	// GetForUser は作成者または宛先本人に限り依頼を返す。
	GetForUser(ctx context.Context, userID, email, id string) (*model.W9Request, error)
	// UpdateStatus は作成者による状態の補正を行う。
	UpdateStatus(ctx context.Context, userID, id, status string) (*model.W9Request, error)
	// GetCompletedForOwner は提出済みの依頼をフォーム付きで返す。
	GetCompletedForOwner(ctx context.Context, userID, id string) (*model.W9Request, error)
	// Stats はダッシュボード用の集計値を返す。
	Stats(ctx context.Context, userID string) (*model.RequestStats, error)
}

// EmailDispatcher は依頼メールの送信インターフェース。
type EmailDispatcher interface {
	SendRequestEmail(ctx context.Context, requestID, vendorName, vendorEmail string) (email.Result, error)
}

// UserFinder はログインユーザーのメールアドレス取得に使う。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// W9Handler は依頼者向けW-9依頼管理のHTTPハンドラー。
type W9Handler struct {
	service    W9ServiceInterface
	users      UserFinder
	dispatcher EmailDispatcher
}

// NewW9Handler はW9Handlerを生成する。
func NewW9Handler(service W9ServiceInterface, users UserFinder, dispatcher EmailDispatcher) *W9Handler {
	return &W9Handler{
		service:    service,
		users:      users,
		dispatcher: dispatcher,
	}
}

// createRequestBody は依頼作成リクエストのボディ。
// created_byは省略可能。指定された場合はログインユーザーと一致しなければならない。
type createRequestBody struct {
	VendorName  string `json:"vendor_name" validate:"required,max=255"`
	VendorEmail string `json:"vendor_email" validate:"required,email,max=320"`
	CreatedBy   string `json:"created_by"`
}

// createRequestResponse は依頼作成のレスポンス。
// メール送信の成否に関わらず依頼とダイレクトリンクを返す。
type createRequestResponse struct {
	w9RequestResponse
	DirectLink string `json:"direct_link"`
	EmailSent  bool   `json:"email_sent"`
}

// sendEmailBody は依頼メール再送リクエストのボディ。
type sendEmailBody struct {
	RequestID string `json:"request_id" validate:"required"`
}

// sendEmailResponse は依頼メール送信のレスポンス。
type sendEmailResponse struct {
	Success bool   `json:"success"`
	Link    string `json:"link"`
	EmailID string `json:"emailId,omitempty"`
}

// updateStatusBody は状態更新リクエストのボディ。
type updateStatusBody struct {
	Status string `json:"status" validate:"required"`
}

// CreateRequest はW-9依頼を作成し、ベンダーへ依頼メールを送る。
// メール送信はベストエフォートで、失敗しても依頼は作成済みのまま返す。
// POST /api/create-w9-request
func (h *W9Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var body createRequestBody
	if err := decodeJSON(w, r, &body, maxBodyBytes); err != nil {
		handleServiceError(w, err)
		return
	}
	if err := validateBody(&body); err != nil {
		handleServiceError(w, err)
		return
	}
	if body.CreatedBy != "" && body.CreatedBy != userID {
		slog.Warn("created_by does not match session user",
			slog.String("user_id", userID),
			slog.String("created_by", body.CreatedBy),
		)
		handleServiceError(w, model.NewOwnerMismatchError())
		return
	}

	req, err := h.service.Create(r.Context(), body.VendorName, body.VendorEmail, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.dispatcher.SendRequestEmail(r.Context(), req.ID, req.VendorName, req.VendorEmail)
	if err != nil {
		slog.Warn("failed to send request email",
			slog.String("request_id", req.ID),
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, http.StatusOK, createRequestResponse{
		w9RequestResponse: toW9RequestResponse(req, true),
		DirectLink:        result.Link,
		EmailSent:         err == nil && result.Sent,
	})
}

// SendEmail は既存の依頼についてベンダーへ依頼メールを送る。
// 宛先は依頼に保存されたベンダー情報を使い、作成者本人のみ実行できる。
// POST /api/send-w9-email
func (h *W9Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var body sendEmailBody
	if err := decodeJSON(w, r, &body, maxBodyBytes); err != nil {
		handleServiceError(w, err)
		return
	}
	if err := validateBody(&body); err != nil {
		handleServiceError(w, err)
		return
	}

	// 宛先照合は行わず、作成者以外には未検出として扱う
	req, err := h.service.GetForUser(r.Context(), userID, "", body.RequestID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if req.Status.IsTerminal() {
		handleServiceError(w, model.NewTerminalStateError(req.Status))
		return
	}

	result, err := h.dispatcher.SendRequestEmail(r.Context(), req.ID, req.VendorName, req.VendorEmail)
	if err != nil {
		slog.Error("failed to send request email",
			slog.String("request_id", req.ID),
			slog.String("error", err.Error()),
		)
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewEmailSendFailedError())
		return
	}

	writeJSON(w, http.StatusOK, sendEmailResponse{
		Success: true,
		Link:    result.Link,
		EmailID: result.EmailID,
	})
}

// ListCreated はログインユーザーが作成した依頼を新しい順に返す。
// GET /api/w9-requests
func (h *W9Handler) ListCreated(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	reqs, err := h.service.ListForCreator(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toW9RequestResponses(reqs))
}

// ListReceived はログインユーザーのメールアドレス宛ての依頼を返す。
// GET /api/w9-requests/received
func (h *W9Handler) ListReceived(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	addr, err := h.callerEmail(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	reqs, err := h.service.ListForRecipientEmail(r.Context(), addr)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toW9RequestResponses(reqs))
}

// Stats はダッシュボード用の集計値を返す。
// GET /api/w9-requests/stats
func (h *W9Handler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Total:     stats.Total,
		Pending:   stats.Pending,
		Completed: stats.Completed,
		Expired:   stats.Expired,
	})
}

// GetRequest は依頼を1件返す。作成者と宛先本人のみ参照できる。
// GET /api/w9-requests/{id}
func (h *W9Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	addr, err := h.callerEmail(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	req, err := h.service.GetForUser(r.Context(), userID, addr, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toW9RequestResponse(req, true))
}

// UpdateStatus は依頼の状態を補正する。pendingからの前進のみ許可される。
// PATCH /api/w9-requests/{id}/status
func (h *W9Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var body updateStatusBody
	if err := decodeJSON(w, r, &body, maxBodyBytes); err != nil {
		handleServiceError(w, err)
		return
	}
	if err := validateBody(&body); err != nil {
		handleServiceError(w, err)
		return
	}

	req, err := h.service.UpdateStatus(r.Context(), userID, chi.URLParam(r, "id"), body.Status)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toW9RequestResponse(req, true))
}

// Download は提出済みフォームをJSONファイルとして返す。作成者のみ実行できる。
// GET /api/w9-requests/{id}/download
func (h *W9Handler) Download(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	req, err := h.service.GetCompletedForOwner(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="w9-%s.json"`, req.ID))
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, toW9RequestResponse(req, false))
}

// callerEmail はログインユーザーのメールアドレスを返す。
func (h *W9Handler) callerEmail(ctx context.Context, userID string) (string, error) {
	user, err := h.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", model.NewUserNotFoundError()
	}
	return user.Email, nil
}
