// Package role は利用者のロール（依頼者/回答者）の判定を提供する。
package role

import (
	"context"

	"github.com/hitoshi/signica/internal/security"
)

// PrimaryRole はダッシュボードの振り分けに使う主ロール。
type PrimaryRole string

const (
	PrimaryRoleBoth      PrimaryRole = "both"
	PrimaryRoleAdmin     PrimaryRole = "admin"
	PrimaryRoleCandidate PrimaryRole = "candidate"
	PrimaryRoleNone      PrimaryRole = "none"
)

// ダッシュボードのパス。
const (
	AdminDashboardPath     = "/dashboard"
	CandidateDashboardPath = "/dashboard/candidate"
)

// Result はロール判定の結果。
type Result struct {
	IsAdmin     bool        `json:"isAdmin"`
	IsCandidate bool        `json:"isCandidate"`
	PrimaryRole PrimaryRole `json:"primaryRole"`
}

// RequestProber はロール判定に必要な存在確認クエリのインターフェース。
type RequestProber interface {
	ExistsByCreator(ctx context.Context, userID string) (bool, error)
	ExistsByVendorEmail(ctx context.Context, email string) (bool, error)
}

// Resolver は依頼の作成履歴と受信履歴からロールを判定する。
type Resolver struct {
	prober RequestProber
}

// NewResolver はResolverを生成する。
func NewResolver(prober RequestProber) *Resolver {
	return &Resolver{prober: prober}
}

// Resolve はユーザーIDとメールアドレスからロールを判定する。
// 作成した依頼があればadmin、自分宛ての依頼があればcandidateとみなす。
// 読み取り専用。ストアのエラーはそのまま返す。
func (r *Resolver) Resolve(ctx context.Context, userID, email string) (Result, error) {
	isAdmin, err := r.prober.ExistsByCreator(ctx, userID)
	if err != nil {
		return Result{}, err
	}

	isCandidate := false
	if email != "" {
		// 正規化できないアドレスは宛先として登録され得ないため、そのまま照合する
		normalized, nerr := security.NormalizeEmail(email)
		if nerr != nil {
			normalized = email
		}
		isCandidate, err = r.prober.ExistsByVendorEmail(ctx, normalized)
		if err != nil {
			return Result{}, err
		}
	}

	return Result{
		IsAdmin:     isAdmin,
		IsCandidate: isCandidate,
		PrimaryRole: Derive(isAdmin, isCandidate),
	}, nil
}

// Derive は2つのフラグから主ロールを導出する。
func Derive(isAdmin, isCandidate bool) PrimaryRole {
	switch {
	case isAdmin && isCandidate:
		return PrimaryRoleBoth
	case isAdmin:
		return PrimaryRoleAdmin
	case isCandidate:
		return PrimaryRoleCandidate
	default:
		return PrimaryRoleNone
	}
}

// DefaultDashboard は主ロールに対応する初期表示ダッシュボードのパスを返す。
// ロールなしの新規ユーザーは依頼者とみなす。
func DefaultDashboard(role PrimaryRole) string {
	if role == PrimaryRoleCandidate {
		return CandidateDashboardPath
	}
	return AdminDashboardPath
}
