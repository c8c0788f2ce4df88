package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/signica/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at, updated_at FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewStoreError("users.find_by_id", err)
	}

	return user, nil
}

// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
func (r *PostgresUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	const op = "users.create_with_identity"

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.NewStoreError(op, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.Name, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return model.NewStoreError(op, fmt.Errorf("insert user: %w", err))
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, user_id, provider, provider_user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		identity.ID, identity.UserID, identity.Provider, identity.ProviderUserID, identity.CreatedAt,
	)
	if err != nil {
		return model.NewStoreError(op, fmt.Errorf("insert identity: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return model.NewStoreError(op, err)
	}

	return nil
}

// UpdateProfile はIdPから取得したメールアドレスと表示名でユーザーを更新する。
// 値に変化がない場合は更新しない。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, id, email, name string, updatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET email = $2, name = $3, updated_at = $4
		 WHERE id = $1 AND (email <> $2 OR name <> $3)`,
		id, email, name, updatedAt,
	)
	if err != nil {
		return model.NewStoreError("users.update_profile", err)
	}
	return nil
}

// DeleteByID は指定IDのユーザーを削除する。
// 関連するidentities、sessions、w9_requestsはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return model.NewStoreError("users.delete", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return model.NewStoreError("users.delete", err)
	}
	if rowsAffected == 0 {
		return model.NewUserNotFoundError()
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
