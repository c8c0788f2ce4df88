package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/signica/internal/model"
	"github.com/hitoshi/signica/internal/role"
)

func decodeRoleResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	return body
}

func TestRoleHandler_GetRole_Candidate(t *testing.T) {
	resolver := &mockRoleResolver{
		resolveFn: func(ctx context.Context, userID, email string) (role.Result, error) {
			if email != "user@example.com" {
				t.Errorf("email = %q, want user@example.com", email)
			}
			return role.Result{IsCandidate: true, PrimaryRole: role.PrimaryRoleCandidate}, nil
		},
	}
	h := NewRoleHandler(resolver, &mockUserFinder{})

	req := httptest.NewRequest(http.MethodGet, "/api/me/role", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.GetRole(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeRoleResponse(t, w)
	if body["isCandidate"] != true || body["isAdmin"] != false {
		t.Errorf("flags = %v", body)
	}
	if body["primaryRole"] != "candidate" {
		t.Errorf("primaryRole = %v, want candidate", body["primaryRole"])
	}
	if body["dashboardPath"] != role.CandidateDashboardPath {
		t.Errorf("dashboardPath = %v, want %s", body["dashboardPath"], role.CandidateDashboardPath)
	}
}

func TestRoleHandler_GetRole_ResolverError_FallsBackToNone(t *testing.T) {
	resolver := &mockRoleResolver{
		resolveFn: func(ctx context.Context, userID, email string) (role.Result, error) {
			return role.Result{}, errors.New("db down")
		},
	}
	h := NewRoleHandler(resolver, &mockUserFinder{})

	req := httptest.NewRequest(http.MethodGet, "/api/me/role", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.GetRole(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeRoleResponse(t, w)
	if body["primaryRole"] != "none" {
		t.Errorf("primaryRole = %v, want none", body["primaryRole"])
	}
	if body["dashboardPath"] != role.AdminDashboardPath {
		t.Errorf("dashboardPath = %v, want %s", body["dashboardPath"], role.AdminDashboardPath)
	}
}

func TestRoleHandler_GetRole_UserLookupFails_FallsBackToNone(t *testing.T) {
	called := false
	resolver := &mockRoleResolver{
		resolveFn: func(ctx context.Context, userID, email string) (role.Result, error) {
			called = true
			return role.Result{}, nil
		},
	}
	users := &mockUserFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, errors.New("timeout")
		},
	}
	h := NewRoleHandler(resolver, users)

	req := httptest.NewRequest(http.MethodGet, "/api/me/role", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.GetRole(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if called {
		t.Error("resolver should not be called without the user's email")
	}
	if body := decodeRoleResponse(t, w); body["primaryRole"] != "none" {
		t.Errorf("primaryRole = %v, want none", body["primaryRole"])
	}
}

func TestRoleHandler_GetRole_NoUserID_ReturnsUnauthorized(t *testing.T) {
	h := NewRoleHandler(&mockRoleResolver{}, &mockUserFinder{})

	req := httptest.NewRequest(http.MethodGet, "/api/me/role", nil)
	w := httptest.NewRecorder()

	h.GetRole(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
