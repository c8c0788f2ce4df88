// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, request, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeMissingFields     = "MISSING_FIELDS"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbiddenOwner    = "OWNER_MISMATCH"
	ErrCodeCSRFTokenInvalid  = "CSRF_TOKEN_INVALID"
	ErrCodeRequestNotFound   = "REQUEST_NOT_FOUND"
	ErrCodeRequestCompleted  = "REQUEST_ALREADY_COMPLETED"
	ErrCodeRequestExpired    = "REQUEST_EXPIRED"
	ErrCodeInvalidStatus     = "INVALID_STATUS"
	ErrCodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeFormNotSubmitted  = "FORM_NOT_SUBMITTED"
	ErrCodeEmailSendFailed   = "EMAIL_SEND_FAILED"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// StoreError はデータストア操作の失敗を表すドメインエラー。
// 元のエラーメッセージを保持したまま呼び出し元に伝播する。
type StoreError struct {
	Op  string
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError はStoreErrorを生成する。
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// NewMissingFieldsError は必須項目不足エラーを生成する。
func NewMissingFieldsError(fields ...string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingFields,
		Message:  fmt.Sprintf("必須項目が入力されていません: %v", fields),
		Category: "validation",
		Action:   "すべての必須項目を入力してください。",
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", detail),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidRequestBodyError はリクエストボディ解析失敗エラーを生成する。
func NewInvalidRequestBodyError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewOwnerMismatchError はリソース所有者と呼び出し元が一致しない場合のエラーを生成する。
func NewOwnerMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeForbiddenOwner,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "依頼を作成したアカウントでログインしてください。",
	}
}

// NewCSRFTokenInvalidError はCSRFトークン検証失敗のエラーを生成する。
func NewCSRFTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFTokenInvalid,
		Message:  "リクエストの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewRequestNotFoundError は依頼未検出エラーを生成する。
func NewRequestNotFoundError(requestID string) *APIError {
	return &APIError{
		Code:     ErrCodeRequestNotFound,
		Message:  fmt.Sprintf("指定されたW-9依頼が見つかりません: %s", requestID),
		Category: "request",
		Action:   "リンクが正しいか確認してください。",
	}
}

// NewRequestCompletedError は提出済みの依頼に対する操作エラーを生成する。
func NewRequestCompletedError() *APIError {
	return &APIError{
		Code:     ErrCodeRequestCompleted,
		Message:  "このW-9フォームは既に提出されています。",
		Category: "request",
		Action:   "再提出が必要な場合は依頼者に新しい依頼を送ってもらってください。",
	}
}

// NewRequestExpiredError は期限切れの依頼に対する操作エラーを生成する。
func NewRequestExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeRequestExpired,
		Message:  "このW-9依頼は有効期限が切れています。",
		Category: "request",
		Action:   "依頼者に新しい依頼を送ってもらってください。",
	}
}

// NewTerminalStateError は終端状態に応じたエラーを生成する。
func NewTerminalStateError(status RequestStatus) *APIError {
	if status == RequestStatusExpired {
		return NewRequestExpiredError()
	}
	return NewRequestCompletedError()
}

// NewInvalidStatusError は未定義の状態値エラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効な状態です: %s", status),
		Category: "validation",
		Action:   "状態には pending、completed、expired のいずれかを指定してください。",
	}
}

// NewInvalidTransitionError は許可されていない状態遷移エラーを生成する。
func NewInvalidTransitionError(from, to RequestStatus) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTransition,
		Message:  fmt.Sprintf("状態を %s から %s に変更することはできません。", from, to),
		Category: "request",
		Action:   "pending の依頼のみ completed または expired に変更できます。",
	}
}

// NewFormNotSubmittedError はフォーム未提出エラーを生成する。
func NewFormNotSubmittedError() *APIError {
	return &APIError{
		Code:     ErrCodeFormNotSubmitted,
		Message:  "この依頼のW-9フォームはまだ提出されていません。",
		Category: "request",
		Action:   "ベンダーの提出をお待ちください。",
	}
}

// NewEmailSendFailedError はメール送信失敗エラーを生成する。
func NewEmailSendFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailSendFailed,
		Message:  "メールの送信に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
