// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/signica/internal/model"
	"github.com/hitoshi/signica/internal/repository"
)

// RequestCounter は退会時に削除されるW-9依頼の件数を取得するインターフェース。
// repository.W9RequestRepositoryの部分集合。
type RequestCounter interface {
	CountStatsByCreator(ctx context.Context, userID string) (*model.RequestStats, error)
}

// Service はユーザー管理のサービス層。
// 退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	requests    RequestCounter
}

// NewService はServiceの新しいインスタンスを生成する。
// requestsがnilの場合は削除件数のログ出力を省略する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	requests RequestCounter,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		requests:    requests,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: sessions → user（+ CASCADE: identities, w9_requests, w9_form_data）
// 本人宛てに他ユーザーが作成した依頼は作成者のデータとして残す。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	attrs := []any{slog.String("user_id", userID)}
	if s.requests != nil {
		stats, err := s.requests.CountStatsByCreator(ctx, userID)
		if err != nil {
			return fmt.Errorf("依頼件数の取得に失敗しました: %w", err)
		}
		// 提出済みW-9は依頼者の税務記録のため、削除件数を別に残す
		attrs = append(attrs,
			slog.Int("requests", stats.Total),
			slog.Int("completed_forms", stats.Completed),
		)
	}
	slog.Info("退会処理を開始します", attrs...)

	// 1. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 2. ユーザーを削除（identities, w9_requests, w9_form_dataはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
