package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/signica/internal/model"
)

// pqUniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const pqUniqueViolation = "23505"

// 依頼と提出フォームをLEFT JOINで取得する際のカラム一覧。
const w9RequestColumns = `r.id, r.vendor_name, r.vendor_email, r.status, r.created_by,
		r.created_at, r.updated_at, r.expires_at,
		f.id, f.legal_name, f.business_name, f.tax_classification, f.ssn_ein,
		f.street_address, f.apartment, f.city, f.state, f.zip_code,
		f.signature, f.signature_type, f.submitted_at`

const w9RequestFrom = `FROM w9_requests r
		 LEFT JOIN w9_form_data f ON f.request_id = r.id`

// PostgresW9RequestRepo はPostgreSQLを使用したW-9依頼リポジトリ。
type PostgresW9RequestRepo struct {
	db *sql.DB
}

// NewPostgresW9RequestRepo はPostgresW9RequestRepoを生成する。
func NewPostgresW9RequestRepo(db *sql.DB) *PostgresW9RequestRepo {
	return &PostgresW9RequestRepo{db: db}
}

// Create は依頼を作成する。
func (r *PostgresW9RequestRepo) Create(ctx context.Context, req *model.W9Request) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO w9_requests (id, vendor_name, vendor_email, status, created_by, created_at, updated_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		req.ID, req.VendorName, req.VendorEmail, req.Status, req.CreatedBy,
		req.CreatedAt, req.UpdatedAt, req.ExpiresAt,
	)
	if err != nil {
		return model.NewStoreError("w9_requests.create", err)
	}
	return nil
}

// FindByID は提出フォームを含めて依頼を取得する。見つからない場合はnilを返す。
func (r *PostgresW9RequestRepo) FindByID(ctx context.Context, id string) (*model.W9Request, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+w9RequestColumns+` `+w9RequestFrom+` WHERE r.id = $1`,
		id,
	)
	req, err := scanW9Request(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewStoreError("w9_requests.find_by_id", err)
	}
	return req, nil
}

// ListByCreator は指定ユーザーが作成した依頼を作成日時の降順で返す。
func (r *PostgresW9RequestRepo) ListByCreator(ctx context.Context, userID string) ([]*model.W9Request, error) {
	return r.list(ctx, "w9_requests.list_by_creator",
		`SELECT `+w9RequestColumns+` `+w9RequestFrom+`
		 WHERE r.created_by = $1
		 ORDER BY r.created_at DESC`,
		userID,
	)
}

// ListByVendorEmail は指定メールアドレス宛ての依頼を作成日時の降順で返す。
func (r *PostgresW9RequestRepo) ListByVendorEmail(ctx context.Context, email string) ([]*model.W9Request, error) {
	return r.list(ctx, "w9_requests.list_by_vendor_email",
		`SELECT `+w9RequestColumns+` `+w9RequestFrom+`
		 WHERE lower(r.vendor_email) = lower($1)
		 ORDER BY r.created_at DESC`,
		email,
	)
}

func (r *PostgresW9RequestRepo) list(ctx context.Context, op, query string, arg any) ([]*model.W9Request, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, model.NewStoreError(op, err)
	}
	defer rows.Close()

	requests := make([]*model.W9Request, 0)
	for rows.Next() {
		req, err := scanW9Request(rows)
		if err != nil {
			return nil, model.NewStoreError(op, err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStoreError(op, err)
	}
	return requests, nil
}

// ExistsByCreator は指定ユーザーが作成した依頼が1件以上あるかを返す。
func (r *PostgresW9RequestRepo) ExistsByCreator(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM w9_requests WHERE created_by = $1 LIMIT 1)`,
		userID,
	).Scan(&exists)
	if err != nil {
		return false, model.NewStoreError("w9_requests.exists_by_creator", err)
	}
	return exists, nil
}

// ExistsByVendorEmail は指定メールアドレス宛ての依頼が1件以上あるかを返す。
func (r *PostgresW9RequestRepo) ExistsByVendorEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM w9_requests WHERE lower(vendor_email) = lower($1) LIMIT 1)`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, model.NewStoreError("w9_requests.exists_by_vendor_email", err)
	}
	return exists, nil
}

// SubmitFormData はフォームの挿入と依頼の pending → completed 遷移を
// 単一トランザクションで行う。
// 依頼が存在しない場合は依頼未検出エラー、pendingでない場合は終端状態エラーを返す。
func (r *PostgresW9RequestRepo) SubmitFormData(ctx context.Context, form *model.W9FormData) error {
	const op = "w9_form_data.submit"

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.NewStoreError(op, err)
	}
	defer tx.Rollback()

	// 同時提出に備えて親の行をロックする
	var status model.RequestStatus
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM w9_requests WHERE id = $1 FOR UPDATE`,
		form.RequestID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return model.NewRequestNotFoundError(form.RequestID)
	}
	if err != nil {
		return model.NewStoreError(op, err)
	}
	if status != model.RequestStatusPending {
		return model.NewTerminalStateError(status)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO w9_form_data (
			id, request_id, legal_name, business_name, tax_classification, ssn_ein,
			street_address, apartment, city, state, zip_code,
			signature, signature_type, submitted_at
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		form.ID, form.RequestID, form.LegalName, nullString(form.BusinessName),
		form.TaxClassification, form.SSNEIN, form.StreetAddress, nullString(form.Apartment),
		form.City, form.State, form.ZipCode, form.Signature, form.SignatureType, form.SubmittedAt,
	)
	if isUniqueViolation(err) {
		return model.NewRequestCompletedError()
	}
	if err != nil {
		return model.NewStoreError(op, err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE w9_requests SET status = $2, updated_at = $3
		 WHERE id = $1 AND status = $4`,
		form.RequestID, model.RequestStatusCompleted, form.SubmittedAt, model.RequestStatusPending,
	)
	if err != nil {
		return model.NewStoreError(op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return model.NewStoreError(op, err)
	}
	if rowsAffected == 0 {
		return model.NewRequestCompletedError()
	}

	if err := tx.Commit(); err != nil {
		return model.NewStoreError(op, err)
	}
	return nil
}

// UpdateStatus はpendingの依頼の状態を変更する。
// 依頼がpendingでなかった（または存在しなかった）場合はfalseを返す。
func (r *PostgresW9RequestRepo) UpdateStatus(ctx context.Context, id string, status model.RequestStatus, updatedAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE w9_requests SET status = $2, updated_at = $3
		 WHERE id = $1 AND status = $4`,
		id, status, updatedAt, model.RequestStatusPending,
	)
	if err != nil {
		return false, model.NewStoreError("w9_requests.update_status", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, model.NewStoreError("w9_requests.update_status", err)
	}
	return rowsAffected > 0, nil
}

// MarkExpired は有効期限を過ぎたpendingの依頼をまとめてexpiredにし、件数を返す。
func (r *PostgresW9RequestRepo) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE w9_requests SET status = $1, updated_at = $2
		 WHERE status = $3 AND expires_at < $2`,
		model.RequestStatusExpired, now, model.RequestStatusPending,
	)
	if err != nil {
		return 0, model.NewStoreError("w9_requests.mark_expired", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, model.NewStoreError("w9_requests.mark_expired", err)
	}
	return n, nil
}

// CountStatsByCreator は指定ユーザーが作成した依頼の状態別件数を返す。
func (r *PostgresW9RequestRepo) CountStatsByCreator(ctx context.Context, userID string) (*model.RequestStats, error) {
	stats := &model.RequestStats{}
	err := r.db.QueryRowContext(ctx,
		`SELECT
			count(*),
			count(*) FILTER (WHERE status = 'pending'),
			count(*) FILTER (WHERE status = 'completed'),
			count(*) FILTER (WHERE status = 'expired')
		 FROM w9_requests WHERE created_by = $1`,
		userID,
	).Scan(&stats.Total, &stats.Pending, &stats.Completed, &stats.Expired)
	if err != nil {
		return nil, model.NewStoreError("w9_requests.count_stats", err)
	}
	return stats, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanW9Request はw9RequestColumnsの並びで1行を読み取る。
// フォーム未提出の場合、FormDataはnilになる。
func scanW9Request(s rowScanner) (*model.W9Request, error) {
	req := &model.W9Request{}
	var (
		formID, legalName, businessName, taxClass, ssnEIN sql.NullString
		street, apartment, city, state, zip               sql.NullString
		signature, signatureType                          sql.NullString
		submittedAt                                       sql.NullTime
	)
	err := s.Scan(
		&req.ID, &req.VendorName, &req.VendorEmail, &req.Status, &req.CreatedBy,
		&req.CreatedAt, &req.UpdatedAt, &req.ExpiresAt,
		&formID, &legalName, &businessName, &taxClass, &ssnEIN,
		&street, &apartment, &city, &state, &zip,
		&signature, &signatureType, &submittedAt,
	)
	if err != nil {
		return nil, err
	}

	if formID.Valid {
		req.FormData = &model.W9FormData{
			ID:                formID.String,
			RequestID:         req.ID,
			LegalName:         legalName.String,
			BusinessName:      businessName.String,
			TaxClassification: model.TaxClassification(taxClass.String),
			SSNEIN:            ssnEIN.String,
			StreetAddress:     street.String,
			Apartment:         apartment.String,
			City:              city.String,
			State:             state.String,
			ZipCode:           zip.String,
			Signature:         signature.String,
			SignatureType:     model.SignatureType(signatureType.String),
			SubmittedAt:       submittedAt.Time,
		}
	}
	return req, nil
}

// nullString は空文字をNULLとして扱う。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isUniqueViolation はerrが一意制約違反かどうかを返す。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// compile-time interface check
var _ W9RequestRepository = (*PostgresW9RequestRepo)(nil)
