package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/signica/internal/email"
	"github.com/hitoshi/signica/internal/middleware"
	"github.com/hitoshi/signica/internal/model"
	"github.com/hitoshi/signica/internal/role"
	"github.com/hitoshi/signica/internal/w9"
)

// --- モック定義 ---

// mockW9Service はW9ServiceInterfaceのモック実装。
type mockW9Service struct {
	createFn               func(ctx context.Context, vendorName, vendorEmail, createdBy string) (*model.W9Request, error)
	listForCreatorFn       func(ctx context.Context, userID string) ([]*model.W9Request, error)
	listForRecipientFn     func(ctx context.Context, email string) ([]*model.W9Request, error)
	getForUserFn           func(ctx context.Context, userID, email, id string) (*model.W9Request, error)
	updateStatusFn         func(ctx context.Context, userID, id, status string) (*model.W9Request, error)
	getCompletedForOwnerFn func(ctx context.Context, userID, id string) (*model.W9Request, error)
	statsFn                func(ctx context.Context, userID string) (*model.RequestStats, error)
}

func (m *mockW9Service) Create(ctx context.Context, vendorName, vendorEmail, createdBy string) (*model.W9Request, error) {
	if m.createFn != nil {
		return m.createFn(ctx, vendorName, vendorEmail, createdBy)
	}
	return nil, nil
}

func (m *mockW9Service) ListForCreator(ctx context.Context, userID string) ([]*model.W9Request, error) {
	if m.listForCreatorFn != nil {
		return m.listForCreatorFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockW9Service) ListForRecipientEmail(ctx context.Context, email string) ([]*model.W9Request, error) {
	if m.listForRecipientFn != nil {
		return m.listForRecipientFn(ctx, email)
	}
	return nil, nil
}

func (m *mockW9Service) GetForUser(ctx context.Context, userID, email, id string) (*model.W9Request, error) {
	if m.getForUserFn != nil {
		return m.getForUserFn(ctx, userID, email, id)
	}
	return nil, model.NewRequestNotFoundError(id)
}

func (m *mockW9Service) UpdateStatus(ctx context.Context, userID, id, status string) (*model.W9Request, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, userID, id, status)
	}
	return nil, model.NewRequestNotFoundError(id)
}

func (m *mockW9Service) GetCompletedForOwner(ctx context.Context, userID, id string) (*model.W9Request, error) {
	if m.getCompletedForOwnerFn != nil {
		return m.getCompletedForOwnerFn(ctx, userID, id)
	}
	return nil, model.NewRequestNotFoundError(id)
}

func (m *mockW9Service) Stats(ctx context.Context, userID string) (*model.RequestStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx, userID)
	}
	return &model.RequestStats{}, nil
}

// mockFormService はFormServiceInterfaceのモック実装。
type mockFormService struct {
	getForCompletionFn func(ctx context.Context, id string) (*model.W9Request, error)
	submitFormDataFn   func(ctx context.Context, requestID string, in w9.FormInput) (*model.W9Request, error)
}

func (m *mockFormService) GetForCompletion(ctx context.Context, id string) (*model.W9Request, error) {
	if m.getForCompletionFn != nil {
		return m.getForCompletionFn(ctx, id)
	}
	return nil, model.NewRequestNotFoundError(id)
}

func (m *mockFormService) SubmitFormData(ctx context.Context, requestID string, in w9.FormInput) (*model.W9Request, error) {
	if m.submitFormDataFn != nil {
		return m.submitFormDataFn(ctx, requestID, in)
	}
	return nil, model.NewRequestNotFoundError(requestID)
}

// mockEmailDispatcher はEmailDispatcherのモック実装。
type mockEmailDispatcher struct {
	sendFn func(ctx context.Context, requestID, vendorName, vendorEmail string) (email.Result, error)
}

func (m *mockEmailDispatcher) SendRequestEmail(ctx context.Context, requestID, vendorName, vendorEmail string) (email.Result, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, requestID, vendorName, vendorEmail)
	}
	return email.Result{Link: "http://localhost:3000/form/" + requestID + "?direct=true"}, nil
}

// mockUserFinder はUserFinderのモック実装。
type mockUserFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserFinder) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &model.User{ID: id, Email: "user@example.com", Name: "Test User"}, nil
}

// mockRoleResolver はRoleResolverのモック実装。
type mockRoleResolver struct {
	resolveFn func(ctx context.Context, userID, email string) (role.Result, error)
}

func (m *mockRoleResolver) Resolve(ctx context.Context, userID, email string) (role.Result, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, userID, email)
	}
	return role.Result{PrimaryRole: role.PrimaryRoleNone}, nil
}

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	pingFn func(ctx context.Context) error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// pendingRequest はテスト用のpending状態の依頼を返す。
func pendingRequest(id, createdBy string) *model.W9Request {
	return &model.W9Request{
		ID:          id,
		VendorName:  "Acme LLC",
		VendorEmail: "vendor@example.com",
		Status:      model.RequestStatusPending,
		CreatedBy:   createdBy,
	}
}

// completedRequest はテスト用の提出済みの依頼を返す。
func completedRequest(id, createdBy string) *model.W9Request {
	req := pendingRequest(id, createdBy)
	req.Status = model.RequestStatusCompleted
	req.FormData = &model.W9FormData{
		ID:                "form-1",
		RequestID:         id,
		LegalName:         "Jane Vendor",
		TaxClassification: model.TaxClassificationLLC,
		SSNEIN:            "123-45-6789",
		StreetAddress:     "1 Main St",
		City:              "Springfield",
		State:             "IL",
		ZipCode:           "62701",
		Signature:         "Jane Vendor",
		SignatureType:     model.SignatureTypeTyped,
	}
	return req
}
