package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/signica/internal/model"
	"github.com/hitoshi/signica/internal/w9"
)

const validFormBody = `{
	"legal_name": "Jane Vendor",
	"tax_classification": "individual",
	"ssn_ein": "123-45-6789",
	"street_address": "1 Main St",
	"city": "Springfield",
	"state": "IL",
	"zip_code": "62701",
	"signature": "Jane Vendor",
	"signature_type": "typed"
}`

// --- GET /api/form/{id} テスト ---

func TestFormHandler_GetForm_Success_HidesCreator(t *testing.T) {
	svc := &mockFormService{
		getForCompletionFn: func(ctx context.Context, id string) (*model.W9Request, error) {
			req := pendingRequest(id, "admin-secret-id")
			req.ExpiresAt = time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
			return req, nil
		},
	}
	h := NewFormHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/form/req-1", nil)
	req = withChiURLParam(req, "id", "req-1")
	w := httptest.NewRecorder()

	h.GetForm(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	raw := w.Body.String()
	if strings.Contains(raw, "admin-secret-id") || strings.Contains(raw, "created_by") {
		t.Errorf("public response must not expose the creator: %s", raw)
	}

	var resp formPageResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.ID != "req-1" || resp.VendorName != "Acme LLC" || resp.Status != "pending" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestFormHandler_GetForm_MissingID_ReturnsBadRequest(t *testing.T) {
	h := NewFormHandler(&mockFormService{})

	req := httptest.NewRequest(http.MethodGet, "/api/form/", nil)
	w := httptest.NewRecorder()

	h.GetForm(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseAPIErrorResponse(t, w); body["code"] != model.ErrCodeMissingFields {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeMissingFields)
	}
}

func TestFormHandler_GetForm_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", model.NewRequestNotFoundError("req-1"), http.StatusNotFound, model.ErrCodeRequestNotFound},
		{"completed", model.NewRequestCompletedError(), http.StatusBadRequest, model.ErrCodeRequestCompleted},
		{"expired", model.NewRequestExpiredError(), http.StatusBadRequest, model.ErrCodeRequestExpired},
		{"store", model.NewStoreError("w9_requests.find", errors.New("timeout")), http.StatusInternalServerError, model.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockFormService{
				getForCompletionFn: func(ctx context.Context, id string) (*model.W9Request, error) {
					return nil, tt.err
				},
			}
			h := NewFormHandler(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/form/req-1", nil)
			req = withChiURLParam(req, "id", "req-1")
			w := httptest.NewRecorder()

			h.GetForm(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if body := parseAPIErrorResponse(t, w); body["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", body["code"], tt.wantCode)
			}
		})
	}
}

// --- POST /api/form/{id} テスト ---

func TestFormHandler_SubmitForm_Success(t *testing.T) {
	submittedAt := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	svc := &mockFormService{
		submitFormDataFn: func(ctx context.Context, requestID string, in w9.FormInput) (*model.W9Request, error) {
			if requestID != "req-1" {
				t.Errorf("requestID = %q, want req-1", requestID)
			}
			if in.LegalName != "Jane Vendor" || in.SSNEIN != "123-45-6789" || in.SignatureType != "typed" {
				t.Errorf("form input not decoded: %+v", in)
			}
			req := completedRequest(requestID, "admin-1")
			req.FormData.SubmittedAt = submittedAt
			return req, nil
		},
	}
	h := NewFormHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/form/req-1", strings.NewReader(validFormBody))
	req = withChiURLParam(req, "id", "req-1")
	w := httptest.NewRecorder()

	h.SubmitForm(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp submitFormResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if !resp.Success || resp.Status != "completed" || !resp.SubmittedAt.Equal(submittedAt) {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestFormHandler_SubmitForm_InvalidJSON_ReturnsBadRequest(t *testing.T) {
	h := NewFormHandler(&mockFormService{
		submitFormDataFn: func(ctx context.Context, requestID string, in w9.FormInput) (*model.W9Request, error) {
			t.Error("service must not be called for an unparsable body")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/form/req-1", strings.NewReader(`{"legal_name":`))
	req = withChiURLParam(req, "id", "req-1")
	w := httptest.NewRecorder()

	h.SubmitForm(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestFormHandler_SubmitForm_AlreadyCompleted_ReturnsBadRequest(t *testing.T) {
	svc := &mockFormService{
		submitFormDataFn: func(ctx context.Context, requestID string, in w9.FormInput) (*model.W9Request, error) {
			return nil, model.NewRequestCompletedError()
		},
	}
	h := NewFormHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/form/req-1", strings.NewReader(validFormBody))
	req = withChiURLParam(req, "id", "req-1")
	w := httptest.NewRecorder()

	h.SubmitForm(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseAPIErrorResponse(t, w); body["code"] != model.ErrCodeRequestCompleted {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeRequestCompleted)
	}
}

func TestFormHandler_SubmitForm_ValidationError_ReturnsBadRequest(t *testing.T) {
	svc := &mockFormService{
		submitFormDataFn: func(ctx context.Context, requestID string, in w9.FormInput) (*model.W9Request, error) {
			return nil, model.NewValidationError("ssn_ein")
		},
	}
	h := NewFormHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/form/req-1", strings.NewReader(`{"ssn_ein":"12"}`))
	req = withChiURLParam(req, "id", "req-1")
	w := httptest.NewRecorder()

	h.SubmitForm(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
