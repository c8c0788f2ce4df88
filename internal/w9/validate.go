package w9

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/signica/internal/model"
)

// FormInput はベンダーが送信するW-9フォームの入力値。
type FormInput struct {
	LegalName         string `json:"legal_name" validate:"required,max=255"`
	BusinessName      string `json:"business_name" validate:"max=255"`
	TaxClassification string `json:"tax_classification" validate:"required,oneof=individual c-corp s-corp partnership llc other"`
	SSNEIN            string `json:"ssn_ein" validate:"required,taxid"`
	StreetAddress     string `json:"street_address" validate:"required,max=255"`
	Apartment         string `json:"apartment" validate:"max=50"`
	City              string `json:"city" validate:"required,max=100"`
	State             string `json:"state" validate:"required,len=2,alpha"`
	ZipCode           string `json:"zip_code" validate:"required,zipcode"`
	Signature         string `json:"signature" validate:"required"`
	SignatureType     string `json:"signature_type" validate:"required,oneof=typed drawn"`
}

var (
	// SSN (123-45-6789) / EIN (12-3456789)。ハイフンは省略可だが位置は固定
	taxIDPattern = regexp.MustCompile(`^(\d{3}-?\d{2}-?\d{4}|\d{2}-?\d{7})$`)
	// ZIP または ZIP+4
	zipCodePattern = regexp.MustCompile(`^\d{5}(-?\d{4})?$`)
)

// newValidator はW-9フォーム用のカスタムルールを登録したvalidatorを生成する。
// エラーのフィールド名にはJSONタグ名を使う。
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// 保存値は入力そのものなので、列長を超える形はここで弾く
	v.RegisterValidation("taxid", func(fl validator.FieldLevel) bool {
		return taxIDPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("zipcode", func(fl validator.FieldLevel) bool {
		return zipCodePattern.MatchString(fl.Field().String())
	})

	return v
}

// validateForm はフォーム入力を検証し、APIErrorに変換して返す。
// 必須項目の欠落は MISSING_FIELDS、それ以外の違反は VALIDATION_FAILED になる。
func validateForm(v *validator.Validate, in *FormInput) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return model.NewValidationError(err.Error())
	}

	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		invalid = append(invalid, fe.Field())
	}
	if len(missing) > 0 {
		return model.NewMissingFieldsError(missing...)
	}
	return model.NewValidationError(strings.Join(invalid, ", "))
}
