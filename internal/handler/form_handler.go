package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/signica/internal/model"
	"github.com/hitoshi/signica/internal/w9"
)

// FormServiceInterface は回答ページ（認証不要）が必要とするサービスインターフェース。
type FormServiceInterface interface {
	// GetForCompletion は回答可能な依頼を返す。
	GetForCompletion(ctx context.Context, id string) (*model.W9Request, error)
	// SubmitFormData はフォームを保存し依頼をcompletedにする。
	SubmitFormData(ctx context.Context, requestID string, in w9.FormInput) (*model.W9Request, error)
}

// FormHandler はベンダー向け回答ページのHTTPハンドラー。
// 依頼IDを知っていることが唯一のアクセス条件になる。
type FormHandler struct {
	service FormServiceInterface
}

// NewFormHandler はFormHandlerを生成する。
func NewFormHandler(service FormServiceInterface) *FormHandler {
	return &FormHandler{service: service}
}

// submitFormResponse はフォーム提出のレスポンス。
type submitFormResponse struct {
	Success     bool      `json:"success"`
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// GetForm は回答ページに表示する依頼を返す。
// GET /api/form/{id}
func (h *FormHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		handleServiceError(w, model.NewMissingFieldsError("id"))
		return
	}

	req, err := h.service.GetForCompletion(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, formPageResponse{
		ID:          req.ID,
		VendorName:  req.VendorName,
		VendorEmail: req.VendorEmail,
		Status:      string(req.Status),
		ExpiresAt:   req.ExpiresAt,
		FormData:    toW9FormDataResponse(req.FormData, true),
	})
}

// SubmitForm はW-9フォームを提出する。
// POST /api/form/{id}
func (h *FormHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		handleServiceError(w, model.NewMissingFieldsError("id"))
		return
	}

	var in w9.FormInput
	if err := decodeJSON(w, r, &in, maxFormBodyBytes); err != nil {
		handleServiceError(w, err)
		return
	}

	req, err := h.service.SubmitFormData(r.Context(), id, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	res := submitFormResponse{
		Success: true,
		ID:      req.ID,
		Status:  string(req.Status),
	}
	if req.FormData != nil {
		res.SubmittedAt = req.FormData.SubmittedAt
	}
	writeJSON(w, http.StatusOK, res)
}
