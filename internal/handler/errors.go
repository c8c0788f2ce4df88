package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/signica/internal/model"
)

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeUnauthorized は未認証エラーを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// StoreErrorを含むAPIError以外のエラーは内部エラー。詳細はログのみに残す
	var storeErr *model.StoreError
	if errors.As(err, &storeErr) {
		slog.Error("store operation failed",
			slog.String("op", storeErr.Op),
			slog.String("error", storeErr.Err.Error()),
		)
	} else {
		slog.Error("internal server error", slog.String("error", err.Error()))
	}
	writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest,
		model.ErrCodeMissingFields,
		model.ErrCodeValidationFailed,
		model.ErrCodeInvalidStatus:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized, model.ErrCodeForbiddenOwner:
		return http.StatusUnauthorized
	case model.ErrCodeCSRFTokenInvalid:
		return http.StatusForbidden
	case model.ErrCodeRequestNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	// 終端状態の依頼に対する操作はクライアント側の誤りとして扱う
	case model.ErrCodeRequestCompleted,
		model.ErrCodeRequestExpired,
		model.ErrCodeInvalidTransition,
		model.ErrCodeFormNotSubmitted:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
