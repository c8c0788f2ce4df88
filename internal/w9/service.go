// Package w9 はW-9依頼のライフサイクル管理を提供する。
//
// 依頼は pending で作成され、フォーム提出で completed、有効期限切れで expired に遷移する。
// 状態は前進のみで、pending に戻ることはない。
package w9

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hitoshi/signica/internal/model"
	"github.com/hitoshi/signica/internal/repository"
	"github.com/hitoshi/signica/internal/security"
)

// DefaultRequestTTL は依頼の既定の有効期間。
const DefaultRequestTTL = 30 * 24 * time.Hour

// drawnSignaturePrefix は手書き署名（画像のdata URL）の接頭辞。
const drawnSignaturePrefix = "data:image/"

// Recorder はライフサイクルイベントを記録するメトリクスのインターフェース。
type Recorder interface {
	RecordRequestCreated()
	RecordFormSubmitted()
	RecordRequestsExpired(source string, n int)
}

type nopRecorder struct{}

func (nopRecorder) RecordRequestCreated()                      {}
func (nopRecorder) RecordFormSubmitted()                       {}
func (nopRecorder) RecordRequestsExpired(source string, n int) {}

// ServiceConfig はライフサイクル管理の設定。
type ServiceConfig struct {
	RequestTTL time.Duration // 作成から期限切れまでの期間
}

// Service はW-9依頼のライフサイクルを管理するサービス層。
type Service struct {
	repo      repository.W9RequestRepository
	sanitizer security.InputSanitizer
	recorder  Recorder
	validate  *validator.Validate
	ttl       time.Duration
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// recorderがnilの場合は記録しない。
func NewService(
	repo repository.W9RequestRepository,
	sanitizer security.InputSanitizer,
	recorder Recorder,
	config ServiceConfig,
) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	ttl := config.RequestTTL
	if ttl <= 0 {
		ttl = DefaultRequestTTL
	}
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		recorder:  recorder,
		validate:  newValidator(),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Create はpendingの依頼を作成する。
// 宛先メールアドレスの形式検証は行わない（呼び出し側の責務）。
// 比較用に正規化できた場合は正規化後のアドレスを保存する。
func (s *Service) Create(ctx context.Context, vendorName, vendorEmail, createdBy string) (*model.W9Request, error) {
	name := s.sanitizer.Clean(vendorName)
	email := s.sanitizer.Clean(vendorEmail)

	var missing []string
	if name == "" {
		missing = append(missing, "vendor_name")
	}
	if email == "" {
		missing = append(missing, "vendor_email")
	}
	if createdBy == "" {
		missing = append(missing, "created_by")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingFieldsError(missing...)
	}

	if normalized, err := security.NormalizeEmail(email); err == nil {
		email = normalized
	}

	now := s.now().UTC()
	req := &model.W9Request{
		ID:          uuid.New().String(),
		VendorName:  name,
		VendorEmail: email,
		Status:      model.RequestStatusPending,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.recorder.RecordRequestCreated()
	slog.Info("w9 request created",
		slog.String("request_id", req.ID),
		slog.String("created_by", createdBy),
	)
	return req, nil
}

// GetByID は提出フォームを含めて依頼を返す。
// 存在しない場合（UUIDとして不正なIDを含む）はnil, nilを返す。
func (s *Service) GetByID(ctx context.Context, id string) (*model.W9Request, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return s.repo.FindByID(ctx, id)
}

// ListForCreator は指定ユーザーが作成した依頼を新しい順に返す。
func (s *Service) ListForCreator(ctx context.Context, userID string) ([]*model.W9Request, error) {
	return s.repo.ListByCreator(ctx, userID)
}

// ListForRecipientEmail は指定メールアドレス宛ての依頼を新しい順に返す。
func (s *Service) ListForRecipientEmail(ctx context.Context, email string) ([]*model.W9Request, error) {
	if normalized, err := security.NormalizeEmail(email); err == nil {
		email = normalized
	}
	return s.repo.ListByVendorEmail(ctx, email)
}

// GetForUser は依頼者本人または宛先本人に限って依頼を返す。
// それ以外の利用者には存在を明かさず、未検出エラーを返す。
func (s *Service) GetForUser(ctx context.Context, userID, email, id string) (*model.W9Request, error) {
	req, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil || !canView(req, userID, email) {
		return nil, model.NewRequestNotFoundError(id)
	}
	return req, nil
}

func canView(req *model.W9Request, userID, email string) bool {
	if req.CreatedBy == userID {
		return true
	}
	if email == "" {
		return false
	}
	normalized, err := security.NormalizeEmail(email)
	if err != nil {
		normalized = email
	}
	return strings.EqualFold(req.VendorEmail, normalized)
}

// GetForCompletion は回答ページ向けに依頼を返す。
// 未検出は依頼未検出エラー、completed/expired は終端状態エラーを返す。
// pendingのまま有効期限を過ぎている場合はその場でexpiredに遷移させ、終端状態エラーを返す。
func (s *Service) GetForCompletion(ctx context.Context, id string) (*model.W9Request, error) {
	if id == "" {
		return nil, model.NewMissingFieldsError("id")
	}

	req, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, model.NewRequestNotFoundError(id)
	}
	if req.Status.IsTerminal() {
		return nil, model.NewTerminalStateError(req.Status)
	}

	now := s.now().UTC()
	if req.IsPastExpiry(now) {
		return nil, s.expire(ctx, req, now)
	}
	return req, nil
}

// expire は期限切れの依頼をexpiredに遷移させ、呼び出し元に返す終端状態エラーを返す。
func (s *Service) expire(ctx context.Context, req *model.W9Request, now time.Time) error {
	ok, err := s.repo.UpdateStatus(ctx, req.ID, model.RequestStatusExpired, now)
	if err != nil {
		return err
	}
	if !ok {
		// 並行して別の遷移が確定した
		return s.currentTerminalError(ctx, req.ID)
	}

	s.recorder.RecordRequestsExpired("read", 1)
	slog.Info("w9 request expired on read", slog.String("request_id", req.ID))
	return model.NewRequestExpiredError()
}

// SubmitFormData はフォームを検証して保存し、依頼をcompletedに遷移させる。
// 保存と遷移は単一トランザクションで行われ、2回目の提出は終端状態エラーになる。
func (s *Service) SubmitFormData(ctx context.Context, requestID string, in FormInput) (*model.W9Request, error) {
	req, err := s.GetForCompletion(ctx, requestID)
	if err != nil {
		return nil, err
	}

	cleaned := s.cleanForm(in)
	if err := validateForm(s.validate, &cleaned); err != nil {
		return nil, err
	}
	if cleaned.SignatureType == string(model.SignatureTypeDrawn) && !strings.HasPrefix(cleaned.Signature, drawnSignaturePrefix) {
		return nil, model.NewValidationError("signature")
	}

	form := &model.W9FormData{
		ID:                uuid.New().String(),
		RequestID:         req.ID,
		LegalName:         cleaned.LegalName,
		BusinessName:      cleaned.BusinessName,
		TaxClassification: model.TaxClassification(cleaned.TaxClassification),
		SSNEIN:            cleaned.SSNEIN,
		StreetAddress:     cleaned.StreetAddress,
		Apartment:         cleaned.Apartment,
		City:              cleaned.City,
		State:             strings.ToUpper(cleaned.State),
		ZipCode:           cleaned.ZipCode,
		Signature:         cleaned.Signature,
		SignatureType:     model.SignatureType(cleaned.SignatureType),
		SubmittedAt:       s.now().UTC(),
	}

	if err := s.repo.SubmitFormData(ctx, form); err != nil {
		return nil, err
	}

	s.recorder.RecordFormSubmitted()
	slog.Info("w9 form submitted", slog.String("request_id", req.ID))

	req.Status = model.RequestStatusCompleted
	req.UpdatedAt = form.SubmittedAt
	req.FormData = form
	return req, nil
}

// cleanForm は自由記述項目からマークアップを除去する。
// 手書き署名はdata URLのため対象外。
func (s *Service) cleanForm(in FormInput) FormInput {
	out := FormInput{
		LegalName:         s.sanitizer.Clean(in.LegalName),
		BusinessName:      s.sanitizer.Clean(in.BusinessName),
		TaxClassification: strings.TrimSpace(in.TaxClassification),
		SSNEIN:            strings.TrimSpace(in.SSNEIN),
		StreetAddress:     s.sanitizer.Clean(in.StreetAddress),
		Apartment:         s.sanitizer.Clean(in.Apartment),
		City:              s.sanitizer.Clean(in.City),
		State:             strings.TrimSpace(in.State),
		ZipCode:           strings.TrimSpace(in.ZipCode),
		SignatureType:     strings.TrimSpace(in.SignatureType),
	}
	if out.SignatureType == string(model.SignatureTypeDrawn) {
		out.Signature = strings.TrimSpace(in.Signature)
	} else {
		out.Signature = s.sanitizer.Clean(in.Signature)
	}
	return out
}

// UpdateStatus は依頼者による状態の手動訂正を行う。
// 許可される遷移は pending → completed / expired のみ。
func (s *Service) UpdateStatus(ctx context.Context, userID, id, status string) (*model.W9Request, error) {
	next := model.RequestStatus(status)
	if !next.IsValid() {
		return nil, model.NewInvalidStatusError(status)
	}

	req, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, model.NewRequestNotFoundError(id)
	}
	if req.CreatedBy != userID {
		return nil, model.NewOwnerMismatchError()
	}
	if !req.Status.CanTransitionTo(next) {
		if req.Status.IsTerminal() {
			return nil, model.NewTerminalStateError(req.Status)
		}
		return nil, model.NewInvalidTransitionError(req.Status, next)
	}

	now := s.now().UTC()
	ok, err := s.repo.UpdateStatus(ctx, id, next, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.currentTerminalError(ctx, id)
	}

	if next == model.RequestStatusExpired {
		s.recorder.RecordRequestsExpired("manual", 1)
	}
	slog.Info("w9 request status updated",
		slog.String("request_id", id),
		slog.String("from", string(req.Status)),
		slog.String("to", string(next)),
	)

	req.Status = next
	req.UpdatedAt = now
	return req, nil
}

// currentTerminalError は遷移に失敗した依頼の現在状態に応じたエラーを返す。
func (s *Service) currentTerminalError(ctx context.Context, id string) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return model.NewRequestNotFoundError(id)
	}
	return model.NewTerminalStateError(current.Status)
}

// GetCompletedForOwner はダウンロード用に提出済みの依頼を返す。
// 依頼者本人以外は権限エラー、未提出の場合はフォーム未提出エラーを返す。
func (s *Service) GetCompletedForOwner(ctx context.Context, userID, id string) (*model.W9Request, error) {
	req, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, model.NewRequestNotFoundError(id)
	}
	if req.CreatedBy != userID {
		return nil, model.NewOwnerMismatchError()
	}
	if req.Status != model.RequestStatusCompleted || req.FormData == nil {
		return nil, model.NewFormNotSubmittedError()
	}
	return req, nil
}

// Stats は依頼者ダッシュボード用の状態別件数を返す。
func (s *Service) Stats(ctx context.Context, userID string) (*model.RequestStats, error) {
	return s.repo.CountStatsByCreator(ctx, userID)
}
