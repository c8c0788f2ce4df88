package w9

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/signica/internal/model"
	"github.com/hitoshi/signica/internal/security"
)

// --- モック ---

// memoryRepo はW9RequestRepositoryのインメモリ実装。
// SubmitFormDataはPostgreSQL実装と同様に、pendingでない依頼への提出を拒否する。
type memoryRepo struct {
	mu       sync.Mutex
	requests map[string]*model.W9Request

	// 以下が設定されている場合はその関数を呼ぶ
	createFn       func(ctx context.Context, req *model.W9Request) error
	beforeSubmitFn func()
	updateStatusFn func(ctx context.Context, id string, status model.RequestStatus, updatedAt time.Time) (bool, error)
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{requests: make(map[string]*model.W9Request)}
}

func (m *memoryRepo) Create(ctx context.Context, req *model.W9Request) error {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *memoryRepo) FindByID(ctx context.Context, id string) (*model.W9Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (m *memoryRepo) filter(pred func(*model.W9Request) bool) []*model.W9Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.W9Request, 0)
	for _, r := range m.requests {
		if pred(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memoryRepo) ListByCreator(ctx context.Context, userID string) ([]*model.W9Request, error) {
	return m.filter(func(r *model.W9Request) bool { return r.CreatedBy == userID }), nil
}

func (m *memoryRepo) ListByVendorEmail(ctx context.Context, email string) ([]*model.W9Request, error) {
	return m.filter(func(r *model.W9Request) bool { return strings.EqualFold(r.VendorEmail, email) }), nil
}

func (m *memoryRepo) ExistsByCreator(ctx context.Context, userID string) (bool, error) {
	list, _ := m.ListByCreator(ctx, userID)
	return len(list) > 0, nil
}

func (m *memoryRepo) ExistsByVendorEmail(ctx context.Context, email string) (bool, error) {
	list, _ := m.ListByVendorEmail(ctx, email)
	return len(list) > 0, nil
}

func (m *memoryRepo) SubmitFormData(ctx context.Context, form *model.W9FormData) error {
	if m.beforeSubmitFn != nil {
		m.beforeSubmitFn()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[form.RequestID]
	if !ok {
		return model.NewRequestNotFoundError(form.RequestID)
	}
	if req.Status != model.RequestStatusPending {
		return model.NewTerminalStateError(req.Status)
	}
	cp := *form
	req.FormData = &cp
	req.Status = model.RequestStatusCompleted
	req.UpdatedAt = form.SubmittedAt
	return nil
}

func (m *memoryRepo) UpdateStatus(ctx context.Context, id string, status model.RequestStatus, updatedAt time.Time) (bool, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || req.Status != model.RequestStatusPending {
		return false, nil
	}
	req.Status = status
	req.UpdatedAt = updatedAt
	return true, nil
}

func (m *memoryRepo) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.requests {
		if r.Status == model.RequestStatusPending && r.ExpiresAt.Before(now) {
			r.Status = model.RequestStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) CountStatsByCreator(ctx context.Context, userID string) (*model.RequestStats, error) {
	stats := &model.RequestStats{}
	for _, r := range m.filter(func(r *model.W9Request) bool { return r.CreatedBy == userID }) {
		stats.Total++
		switch r.Status {
		case model.RequestStatusPending:
			stats.Pending++
		case model.RequestStatusCompleted:
			stats.Completed++
		case model.RequestStatusExpired:
			stats.Expired++
		}
	}
	return stats, nil
}

type mockRecorder struct {
	created   int
	submitted int
	expired   map[string]int
}

func (m *mockRecorder) RecordRequestCreated() { m.created++ }
func (m *mockRecorder) RecordFormSubmitted()  { m.submitted++ }
func (m *mockRecorder) RecordRequestsExpired(source string, n int) {
	if m.expired == nil {
		m.expired = make(map[string]int)
	}
	m.expired[source] += n
}

// --- ヘルパー ---

func newTestService(repo *memoryRepo) (*Service, *mockRecorder) {
	rec := &mockRecorder{}
	svc := NewService(repo, security.NewInputSanitizer(), rec, ServiceConfig{RequestTTL: DefaultRequestTTL})
	return svc, rec
}

func validForm() FormInput {
	return FormInput{
		LegalName:         "Acme Corp",
		TaxClassification: "c-corp",
		SSNEIN:            "12-3456789",
		StreetAddress:     "1 Main St",
		City:              "Springfield",
		State:             "il",
		ZipCode:           "62701",
		Signature:         "Jane Doe",
		SignatureType:     "typed",
	}
}

func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError with code %s", err, code)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %q, want %q", apiErr.Code, code)
	}
}

// --- テスト ---

func TestService_Create_IsPending(t *testing.T) {
	repo := newMemoryRepo()
	svc, rec := newTestService(repo)
	fixed := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	req, err := svc.Create(context.Background(), " <b>Acme Corp</b> ", "ACME@Example.com", "user-1")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if req.Status != model.RequestStatusPending {
		t.Errorf("Status = %s, want pending", req.Status)
	}
	if req.VendorName != "Acme Corp" {
		t.Errorf("VendorName = %q, want %q", req.VendorName, "Acme Corp")
	}
	if req.VendorEmail != "acme@example.com" {
		t.Errorf("VendorEmail = %q, want %q", req.VendorEmail, "acme@example.com")
	}
	if !req.ExpiresAt.Equal(fixed.Add(30 * 24 * time.Hour)) {
		t.Errorf("ExpiresAt = %v, want created_at + 30 days", req.ExpiresAt)
	}
	if rec.created != 1 {
		t.Errorf("RecordRequestCreated called %d times, want 1", rec.created)
	}
}

func TestService_Create_MissingFields(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())

	_, err := svc.Create(context.Background(), "<script></script>", "", "user-1")
	assertErrorCode(t, err, model.ErrCodeMissingFields)
}

func TestService_Create_StoreErrorPropagates(t *testing.T) {
	repo := newMemoryRepo()
	storeErr := model.NewStoreError("w9_requests.create", errors.New("connection refused"))
	repo.createFn = func(ctx context.Context, req *model.W9Request) error { return storeErr }
	svc, rec := newTestService(repo)

	_, err := svc.Create(context.Background(), "Acme Corp", "acme@example.com", "user-1")
	var se *model.StoreError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *model.StoreError", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("error message %q should keep the original message", err.Error())
	}
	if rec.created != 0 {
		t.Error("RecordRequestCreated should not be called on failure")
	}
}

func TestService_GetByID_NotFoundReturnsNil(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())

	for _, id := range []string{"abc", "5f0c3a52-3f53-4b55-9a57-2f0d2f3f1c11"} {
		got, err := svc.GetByID(context.Background(), id)
		if err != nil {
			t.Errorf("GetByID(%q) returned error: %v", id, err)
		}
		if got != nil {
			t.Errorf("GetByID(%q) = %+v, want nil", id, got)
		}
	}
}

// Acme Corpの依頼作成から提出までの件数推移を検証する。
func TestService_Scenario_StatsAfterCreateAndSubmit(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	req, err := svc.Create(ctx, "Acme Corp", "acme@example.com", "U1")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	stats, err := svc.Stats(ctx, "U1")
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Total != 1 || stats.Pending != 1 || stats.Completed != 0 {
		t.Errorf("stats after create = %+v, want total=1 pending=1 completed=0", *stats)
	}

	if _, err := svc.SubmitFormData(ctx, req.ID, validForm()); err != nil {
		t.Fatalf("SubmitFormData returned error: %v", err)
	}

	stats, err = svc.Stats(ctx, "U1")
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Pending != 0 || stats.Completed != 1 {
		t.Errorf("stats after submit = %+v, want pending=0 completed=1", *stats)
	}
}

// フォームが提出された依頼は必ずcompletedになる。
func TestService_SubmitFormData_RequestWithFormIsCompleted(t *testing.T) {
	repo := newMemoryRepo()
	svc, rec := newTestService(repo)
	ctx := context.Background()

	req, _ := svc.Create(ctx, "Acme Corp", "acme@example.com", "U1")
	got, err := svc.SubmitFormData(ctx, req.ID, validForm())
	if err != nil {
		t.Fatalf("SubmitFormData returned error: %v", err)
	}
	if got.Status != model.RequestStatusCompleted || got.FormData == nil {
		t.Errorf("returned request status=%s formData=%v", got.Status, got.FormData)
	}
	if got.FormData.State != "IL" {
		t.Errorf("State = %q, want upper-cased IL", got.FormData.State)
	}

	list, _ := svc.ListForCreator(ctx, "U1")
	for _, r := range list {
		if r.FormData != nil && r.Status != model.RequestStatusCompleted {
			t.Errorf("request %s has form data but status %s", r.ID, r.Status)
		}
	}
	if rec.submitted != 1 {
		t.Errorf("RecordFormSubmitted called %d times, want 1", rec.submitted)
	}
}

// 2回目の提出は拒否され、最初のフォームが保持される。
func TestService_SubmitFormData_SecondSubmissionRejected(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	req, _ := svc.Create(ctx, "Acme Corp", "acme@example.com", "U1")
	if _, err := svc.SubmitFormData(ctx, req.ID, validForm()); err != nil {
		t.Fatalf("first SubmitFormData returned error: %v", err)
	}

	second := validForm()
	second.LegalName = "Someone Else"
	_, err := svc.SubmitFormData(ctx, req.ID, second)
	assertErrorCode(t, err, model.ErrCodeRequestCompleted)

	stored, _ := repo.FindByID(ctx, req.ID)
	if stored.FormData.LegalName != "Acme Corp" {
		t.Errorf("LegalName = %q, first submission must be kept", stored.FormData.LegalName)
	}
}

// 読み取り時の判定をすり抜けた提出もリポジトリのトランザクションで拒否される。
func TestService_SubmitFormData_RaceRejectedByRepository(t *testing.T) {
	repo := newMemoryRepo()
	svc, rec := newTestService(repo)
	ctx := context.Background()

	req, _ := svc.Create(ctx, "Acme Corp", "acme@example.com", "U1")

	// 読み取り後、保存前に別の提出が確定した状況を再現する
	repo.beforeSubmitFn = func() {
		repo.mu.Lock()
		repo.requests[req.ID].Status = model.RequestStatusCompleted
		repo.mu.Unlock()
	}

	_, err := svc.SubmitFormData(ctx, req.ID, validForm())
	assertErrorCode(t, err, model.ErrCodeRequestCompleted)
	if rec.submitted != 0 {
		t.Error("RecordFormSubmitted should not be called for a rejected submission")
	}
}

func TestService_SubmitFormData_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(f *FormInput)
		code   string
	}{
		{"氏名なし", func(f *FormInput) { f.LegalName = "  " }, model.ErrCodeMissingFields},
		{"署名なし", func(f *FormInput) { f.Signature = "" }, model.ErrCodeMissingFields},
		{"税区分が不正", func(f *FormInput) { f.TaxClassification = "trust" }, model.ErrCodeValidationFailed},
		{"納税者番号が8桁", func(f *FormInput) { f.SSNEIN = "12-345678" }, model.ErrCodeValidationFailed},
		{"納税者番号に英字", func(f *FormInput) { f.SSNEIN = "12-34567AB" }, model.ErrCodeValidationFailed},
		{"州が3文字", func(f *FormInput) { f.State = "ILL" }, model.ErrCodeValidationFailed},
		{"ZIPが6桁", func(f *FormInput) { f.ZipCode = "627011" }, model.ErrCodeValidationFailed},
		{"納税者番号のハイフン位置が不正", func(f *FormInput) { f.SSNEIN = "1-2-3-4-5-6-7-8-9" }, model.ErrCodeValidationFailed},
		{"納税者番号のハイフンが連続", func(f *FormInput) { f.SSNEIN = "123--45-6789" }, model.ErrCodeValidationFailed},
		{"ZIPのハイフン位置が不正", func(f *FormInput) { f.ZipCode = "1-2-3-4-5-6-7-8-9" }, model.ErrCodeValidationFailed},
		{"ZIP+4のハイフン位置が不正", func(f *FormInput) { f.ZipCode = "6270-11234" }, model.ErrCodeValidationFailed},
		{"署名方式が不正", func(f *FormInput) { f.SignatureType = "stamped" }, model.ErrCodeValidationFailed},
		{"手書き署名が画像でない", func(f *FormInput) { f.SignatureType = "drawn" }, model.ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepo()
			svc, _ := newTestService(repo)
			ctx := context.Background()
			req, _ := svc.Create(ctx, "Acme Corp", "acme@example.com", "U1")

			form := validForm()
			tt.modify(&form)
			_, err := svc.SubmitFormData(ctx, req.ID, form)
			assertErrorCode(t, err, tt.code)

			stored, _ := repo.FindByID(ctx, req.ID)
			if stored.Status != model.RequestStatusPending {
				t.Errorf("status = %s, want pending after rejected submission", stored.Status)
			}
		})
	}
}

func TestService_SubmitFormData_AcceptsVariants(t *testing.T) {
	tests := []struct {
		name   string
		modify func(f *FormInput)
	}{
		{"SSN形式", func(f *FormInput) { f.SSNEIN = "123-45-6789" }},
		{"ハイフンなし", func(f *FormInput) { f.SSNEIN = "123456789" }},
		{"ZIP+4", func(f *FormInput) { f.ZipCode = "62701-1234" }},
		{"ZIP+4ハイフンなし", func(f *FormInput) { f.ZipCode = "627011234" }},
		{"EIN形式", func(f *FormInput) { f.SSNEIN = "12-3456789" }},
		{"手書き署名", func(f *FormInput) {
			f.SignatureType = "drawn"
			f.Signature = "data:image/png;base64,iVBORw0KGgo="
		}},
		{"任意項目あり", func(f *FormInput) {
			f.BusinessName = "Acme Holdings"
			f.Apartment = "Suite 100"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(newMemoryRepo())
			ctx := context.Background()
			req, _ := svc.Create(ctx, "Acme Corp", "acme@example.com", "U1")

			form := validForm()
			tt.modify(&form)
			if _, err := svc.SubmitFormData(ctx, req.ID, form); err != nil {
				t.Errorf("SubmitFormData returned error: %v", err)
			}
		})
	}
}

func TestService_GetForCompletion(t *testing.T) {
	ctx := context.Background()

	t.Run("IDなし", func(t *testing.T) {
		svc, _ := newTestService(newMemoryRepo())
		_, err := svc.GetForCompletion(ctx, "")
		assertErrorCode(t, err, model.ErrCodeMissingFields)
	})

	t.Run("未検出", func(t *testing.T) {
		svc, _ := newTestService(newMemoryRepo())
		_, err := svc.GetForCompletion(ctx, "abc")
		assertErrorCode(t, err, model.ErrCodeRequestNotFound)
	})

	t.Run("提出済み", func(t *testing.T) {
		svc, _ := newTestService(newMemoryRepo())
		req, _ := svc.Create(ctx, "Acme Corp", "acme@example.com", "U1")
		if _, err := svc.SubmitFormData(ctx, req.ID, validForm()); err != nil {
			t.Fatalf("SubmitFormData returned error: %v", err)
		}
		got, err := svc.GetForCompletion(ctx, req.ID)
		if got != nil {
			t.Error("completed request must not be returned for completion")
		}
		assertErrorCode(t, err, model.ErrCodeRequestCompleted)
	})

	t.Run("pending", func(t *testing.T) {
		svc, _ := newTestService(newMemoryRepo())
		req, _ := svc.Create(ctx, "Acme Corp", "acme@example.com", "U1")
		got, err := svc.GetForCompletion(ctx, req.ID)
		if err != nil {
			t.Fatalf("GetForCompletion returned error: %v", err)
		}
		if got.ID != req.ID {
			t.Errorf("ID = %s, want %s", got.ID, req.ID)
		}
	})
}

// 期限を過ぎたpendingの依頼は読み取り時にexpiredへ遷移する。
func TestService_GetForCompletion_ExpiresLazily(t *testing.T) {
	repo := newMemoryRepo()
	svc, rec := newTestService(repo)
	ctx := context.Background()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return created }

	req, _ := svc.Create(ctx, "Acme Corp", "acme@example.com", "U1")

	svc.now = func() time.Time { return created.Add(31 * 24 * time.Hour) }
	_, err := svc.GetForCompletion(ctx, req.ID)
	assertErrorCode(t, err, model.ErrCodeRequestExpired)

	stored, _ := repo.FindByID(ctx, req.ID)
	if stored.Status != model.RequestStatusExpired {
		t.Errorf("status = %s, want expired", stored.Status)
	}
	if rec.expired["read"] != 1 {
		t.Errorf("RecordRequestsExpired(read) = %d, want 1", rec.expired["read"])
	}

	// 期限切れの依頼への提出も拒否される
	_, err = svc.SubmitFormData(ctx, req.ID, validForm())
	assertErrorCode(t, err, model.ErrCodeRequestExpired)
}

// 期限切れへの遷移と提出が競合した場合は、確定した側の終端状態を返す。
func TestService_GetForCompletion_ExpireLosesRace(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo)
	ctx := context.Background()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return created }
	req, _ := svc.Create(ctx, "Acme Corp", "acme@example.com", "U1")

	repo.updateStatusFn = func(ctx context.Context, id string, status model.RequestStatus, updatedAt time.Time) (bool, error) {
		repo.mu.Lock()
		repo.requests[id].Status = model.RequestStatusCompleted
		repo.mu.Unlock()
		return false, nil
	}

	svc.now = func() time.Time { return created.Add(31 * 24 * time.Hour) }
	_, err := svc.GetForCompletion(ctx, req.ID)
	assertErrorCode(t, err, model.ErrCodeRequestCompleted)
}

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		prepare func(svc *Service, id string)
		userID  string
		status  string
		code    string
	}{
		{"未定義の状態", nil, "U1", "archived", model.ErrCodeInvalidStatus},
		{"pendingへの遷移", nil, "U1", "pending", model.ErrCodeInvalidTransition},
		{"他人の依頼", nil, "U2", "expired", model.ErrCodeForbiddenOwner},
		{"提出済みからの遷移", func(svc *Service, id string) {
			svc.SubmitFormData(ctx, id, validForm())
		}, "U1", "expired", model.ErrCodeRequestCompleted},
		{"期限切れからの遷移", func(svc *Service, id string) {
			svc.UpdateStatus(ctx, "U1", id, "expired")
		}, "U1", "pending", model.ErrCodeRequestExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(newMemoryRepo())
			req, _ := svc.Create(ctx, "Acme Corp", "acme@example.com", "U1")
			if tt.prepare != nil {
				tt.prepare(svc, req.ID)
			}
			_, err := svc.UpdateStatus(ctx, tt.userID, req.ID, tt.status)
			assertErrorCode(t, err, tt.code)
		})
	}
}

func TestService_UpdateStatus_PendingToExpired(t *testing.T) {
	repo := newMemoryRepo()
	svc, rec := newTestService(repo)
	ctx := context.Background()
	req, _ := svc.Create(ctx, "Acme Corp", "acme@example.com", "U1")

	got, err := svc.UpdateStatus(ctx, "U1", req.ID, "expired")
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if got.Status != model.RequestStatusExpired {
		t.Errorf("Status = %s, want expired", got.Status)
	}
	if rec.expired["manual"] != 1 {
		t.Errorf("RecordRequestsExpired(manual) = %d, want 1", rec.expired["manual"])
	}
}

func TestService_UpdateStatus_UnknownRequest(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())
	_, err := svc.UpdateStatus(context.Background(), "U1", "abc", "expired")
	assertErrorCode(t, err, model.ErrCodeRequestNotFound)
}

func TestService_GetForUser(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())
	ctx := context.Background()
	req, _ := svc.Create(ctx, "Acme Corp", "acme@example.com", "U1")

	if _, err := svc.GetForUser(ctx, "U1", "owner@example.com", req.ID); err != nil {
		t.Errorf("owner should see the request: %v", err)
	}
	if _, err := svc.GetForUser(ctx, "U2", "ACME@example.com", req.ID); err != nil {
		t.Errorf("recipient should see the request: %v", err)
	}
	_, err := svc.GetForUser(ctx, "U3", "other@example.com", req.ID)
	assertErrorCode(t, err, model.ErrCodeRequestNotFound)
}

func TestService_ListForRecipientEmail_Normalizes(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())
	ctx := context.Background()
	svc.Create(ctx, "Acme Corp", "acme@example.com", "U1")
	svc.Create(ctx, "Globex", "billing@globex.example", "U1")

	list, err := svc.ListForRecipientEmail(ctx, " Acme@EXAMPLE.com")
	if err != nil {
		t.Fatalf("ListForRecipientEmail returned error: %v", err)
	}
	if len(list) != 1 || list[0].VendorName != "Acme Corp" {
		t.Errorf("list = %+v, want only Acme Corp", list)
	}
}

func TestService_ListForCreator_NewestFirst(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	svc.now = func() time.Time { return base }
	first, _ := svc.Create(ctx, "First", "first@example.com", "U1")
	svc.now = func() time.Time { return base.Add(time.Hour) }
	second, _ := svc.Create(ctx, "Second", "second@example.com", "U1")

	list, err := svc.ListForCreator(ctx, "U1")
	if err != nil {
		t.Fatalf("ListForCreator returned error: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("ListForCreator order is wrong")
	}
}

func TestService_GetCompletedForOwner(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())
	ctx := context.Background()
	req, _ := svc.Create(ctx, "Acme Corp", "acme@example.com", "U1")

	_, err := svc.GetCompletedForOwner(ctx, "U1", req.ID)
	assertErrorCode(t, err, model.ErrCodeFormNotSubmitted)

	if _, err := svc.SubmitFormData(ctx, req.ID, validForm()); err != nil {
		t.Fatalf("SubmitFormData returned error: %v", err)
	}

	_, err = svc.GetCompletedForOwner(ctx, "U2", req.ID)
	assertErrorCode(t, err, model.ErrCodeForbiddenOwner)

	got, err := svc.GetCompletedForOwner(ctx, "U1", req.ID)
	if err != nil {
		t.Fatalf("GetCompletedForOwner returned error: %v", err)
	}
	if got.FormData == nil || got.FormData.SSNEIN != "12-3456789" {
		t.Errorf("FormData = %+v", got.FormData)
	}
}
