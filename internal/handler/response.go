package handler

import (
	"strings"
	"time"

	"github.com/hitoshi/signica/internal/model"
)

// w9RequestResponse はW-9依頼のAPIレスポンス。
type w9RequestResponse struct {
	ID          string              `json:"id"`
	VendorName  string              `json:"vendor_name"`
	VendorEmail string              `json:"vendor_email"`
	Status      string              `json:"status"`
	CreatedBy   string              `json:"created_by"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	ExpiresAt   time.Time           `json:"expires_at"`
	FormData    *w9FormDataResponse `json:"form_data"`
}

// w9FormDataResponse は提出済みフォームのAPIレスポンス。
type w9FormDataResponse struct {
	ID                string    `json:"id"`
	RequestID         string    `json:"request_id"`
	LegalName         string    `json:"legal_name"`
	BusinessName      string    `json:"business_name"`
	TaxClassification string    `json:"tax_classification"`
	SSNEIN            string    `json:"ssn_ein"`
	StreetAddress     string    `json:"street_address"`
	Apartment         string    `json:"apartment"`
	City              string    `json:"city"`
	State             string    `json:"state"`
	ZipCode           string    `json:"zip_code"`
	Signature         string    `json:"signature"`
	SignatureType     string    `json:"signature_type"`
	SubmittedAt       time.Time `json:"submitted_at"`
}

// formPageResponse は回答ページ（認証不要）向けのレスポンス。
// 依頼者のユーザーIDは含めない。
type formPageResponse struct {
	ID          string              `json:"id"`
	VendorName  string              `json:"vendor_name"`
	VendorEmail string              `json:"vendor_email"`
	Status      string              `json:"status"`
	ExpiresAt   time.Time           `json:"expires_at"`
	FormData    *w9FormDataResponse `json:"form_data"`
}

// statsResponse はダッシュボード集計のレスポンス。
type statsResponse struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Expired   int `json:"expired"`
}

// toW9RequestResponse はモデルをレスポンスに変換する。
// maskTaxIDがtrueの場合、SSN/EINは下4桁以外を伏せる。
func toW9RequestResponse(req *model.W9Request, maskTaxID bool) w9RequestResponse {
	return w9RequestResponse{
		ID:          req.ID,
		VendorName:  req.VendorName,
		VendorEmail: req.VendorEmail,
		Status:      string(req.Status),
		CreatedBy:   req.CreatedBy,
		CreatedAt:   req.CreatedAt,
		UpdatedAt:   req.UpdatedAt,
		ExpiresAt:   req.ExpiresAt,
		FormData:    toW9FormDataResponse(req.FormData, maskTaxID),
	}
}

func toW9RequestResponses(reqs []*model.W9Request) []w9RequestResponse {
	res := make([]w9RequestResponse, 0, len(reqs))
	for _, req := range reqs {
		res = append(res, toW9RequestResponse(req, true))
	}
	return res
}

func toW9FormDataResponse(fd *model.W9FormData, maskTaxID bool) *w9FormDataResponse {
	if fd == nil {
		return nil
	}
	taxID := fd.SSNEIN
	if maskTaxID {
		taxID = maskTaxIDValue(taxID)
	}
	return &w9FormDataResponse{
		ID:                fd.ID,
		RequestID:         fd.RequestID,
		LegalName:         fd.LegalName,
		BusinessName:      fd.BusinessName,
		TaxClassification: string(fd.TaxClassification),
		SSNEIN:            taxID,
		StreetAddress:     fd.StreetAddress,
		Apartment:         fd.Apartment,
		City:              fd.City,
		State:             fd.State,
		ZipCode:           fd.ZipCode,
		Signature:         fd.Signature,
		SignatureType:     string(fd.SignatureType),
		SubmittedAt:       fd.SubmittedAt,
	}
}

// maskTaxIDValue は下4桁を残して数字を*に置き換える。区切りのハイフンは保持する。
// 例: 123-45-6789 → ***-**-6789
func maskTaxIDValue(v string) string {
	digits := 0
	for _, c := range v {
		if c >= '0' && c <= '9' {
			digits++
		}
	}

	var b strings.Builder
	seen := 0
	for _, c := range v {
		if c >= '0' && c <= '9' {
			seen++
			if digits-seen >= 4 {
				b.WriteByte('*')
				continue
			}
		}
		b.WriteRune(c)
	}
	return b.String()
}
