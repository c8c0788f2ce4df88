package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/signica/internal/model"
)

const (
	// maxBodyBytes は通常のAPIリクエストボディの上限。
	maxBodyBytes = 64 << 10
	// maxFormBodyBytes はW-9フォーム提出の上限。手書き署名の画像データを含む。
	maxFormBodyBytes = 2 << 20
)

// requestValidator はリクエストボディの検証に使う共有インスタンス。
// validator.Validateは並行利用に安全。
var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON はリクエストボディをdstにデコードする。
// 解析に失敗した場合はINVALID_REQUESTを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return model.NewInvalidRequestBodyError()
	}
	return nil
}

// validateBody はvalidateタグに従ってリクエストボディを検証する。
// 必須項目の欠落はMISSING_FIELDS、それ以外はVALIDATION_FAILEDになる。
func validateBody(body interface{}) error {
	// 前後の空白だけの値は未入力とみなす
	trimStrings(body)

	err := requestValidator.Struct(body)
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

// trimStrings は構造体ポインタの文字列フィールドの前後空白を除去する。
func trimStrings(body interface{}) {
	v := reflect.ValueOf(body)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return
	}
	v = v.Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if f.Kind() == reflect.String && f.CanSet() {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}
}
