// Package model はドメインモデルを定義する。
package model

import "time"

// RequestStatus はW-9依頼の状態を表す。
// pending → completed または pending → expired の一方向にのみ遷移する。
type RequestStatus string

const (
	// RequestStatusPending は回答待ちの状態。作成時の初期状態。
	RequestStatusPending RequestStatus = "pending"
	// RequestStatusCompleted はフォーム提出済みの状態（終端）。
	RequestStatusCompleted RequestStatus = "completed"
	// RequestStatusExpired は期限切れの状態（終端）。
	RequestStatusExpired RequestStatus = "expired"
)

// IsValid は定義済みの状態かどうかを返す。
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending, RequestStatusCompleted, RequestStatusExpired:
		return true
	default:
		return false
	}
}

// IsTerminal は終端状態（completed / expired）かどうかを返す。
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusExpired
}

// CanTransitionTo は s から next への遷移が許可されているかを返す。
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return s == RequestStatusPending && next.IsTerminal()
}

// TaxClassification は連邦税区分。
type TaxClassification string

const (
	TaxClassificationIndividual  TaxClassification = "individual"
	TaxClassificationCCorp       TaxClassification = "c-corp"
	TaxClassificationSCorp       TaxClassification = "s-corp"
	TaxClassificationPartnership TaxClassification = "partnership"
	TaxClassificationLLC         TaxClassification = "llc"
	TaxClassificationOther       TaxClassification = "other"
)

// SignatureType は署名の入力方式。
type SignatureType string

const (
	SignatureTypeTyped SignatureType = "typed"
	SignatureTypeDrawn SignatureType = "drawn"
)

// W9Request はベンダーへのW-9提出依頼を表す。
type W9Request struct {
	ID          string
	VendorName  string
	VendorEmail string
	Status      RequestStatus
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   time.Time

	// FormData は提出済みフォーム。未提出の場合はnil。
	FormData *W9FormData
}

// IsPastExpiry は now 時点で有効期限を過ぎているかを返す。
func (r *W9Request) IsPastExpiry(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// W9FormData は提出されたW-9フォームの内容を表す。
// 依頼ごとに1件のみ作成され、作成後は変更されない。
type W9FormData struct {
	ID                string
	RequestID         string
	LegalName         string
	BusinessName      string // 任意
	TaxClassification TaxClassification
	SSNEIN            string
	StreetAddress     string
	Apartment         string // 任意
	City              string
	State             string
	ZipCode           string
	Signature         string
	SignatureType     SignatureType
	SubmittedAt       time.Time
}

// RequestStats は依頼者ダッシュボード用の集計値。
type RequestStats struct {
	Total     int
	Pending   int
	Completed int
	Expired   int
}
