// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/signica/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile はメールアドレスと表示名を最新のIdP情報で更新する。
	UpdateProfile(ctx context.Context, id, email, name string, updatedAt time.Time) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、sessions、w9_requests（およびそのフォーム）はCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は有効期限を過ぎたセッションを削除し、件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// W9RequestRepository はW-9依頼と提出フォームの永続化インターフェース。
// DB由来のエラーはmodel.StoreErrorでラップして返す。
type W9RequestRepository interface {
	// Create は依頼を作成する。
	Create(ctx context.Context, req *model.W9Request) error

	// FindByID は提出フォームを含めて依頼を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.W9Request, error)

	// ListByCreator は指定ユーザーが作成した依頼を作成日時の降順で返す。
	ListByCreator(ctx context.Context, userID string) ([]*model.W9Request, error)

	// ListByVendorEmail は指定メールアドレス宛ての依頼を作成日時の降順で返す。
	// メールアドレスは大文字小文字を区別せずに比較する。
	ListByVendorEmail(ctx context.Context, email string) ([]*model.W9Request, error)

	// ExistsByCreator は指定ユーザーが作成した依頼が1件以上あるかを返す。
	ExistsByCreator(ctx context.Context, userID string) (bool, error)

	// ExistsByVendorEmail は指定メールアドレス宛ての依頼が1件以上あるかを返す。
	ExistsByVendorEmail(ctx context.Context, email string) (bool, error)

	// SubmitFormData はフォームの挿入と依頼の pending → completed 遷移を
	// 単一トランザクションで行う。依頼がpendingでない場合は終端状態エラーを返す。
	SubmitFormData(ctx context.Context, form *model.W9FormData) error

	// UpdateStatus はpendingの依頼の状態を変更する。
	// 依頼がpendingでなかった場合はfalseを返す。
	UpdateStatus(ctx context.Context, id string, status model.RequestStatus, updatedAt time.Time) (bool, error)

	// MarkExpired は有効期限を過ぎたpendingの依頼をまとめてexpiredにし、件数を返す。
	MarkExpired(ctx context.Context, now time.Time) (int64, error)

	// CountStatsByCreator は指定ユーザーが作成した依頼の状態別件数を返す。
	CountStatsByCreator(ctx context.Context, userID string) (*model.RequestStats, error)
}
