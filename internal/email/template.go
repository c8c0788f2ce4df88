package email

import (
	"bytes"
	"fmt"
	"html/template"
)

const requestSubject = "W-9 form requested: please complete your tax information"

var requestHTMLTemplate = template.Must(template.New("request").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #111827;">
  <p>Hello {{.VendorName}},</p>
  <p>You have been asked to complete an IRS Form W-9 through Signica.
  The form takes a few minutes and does not require an account.</p>
  <p><a href="{{.Link}}" style="display:inline-block;padding:10px 16px;background:#2563eb;color:#ffffff;text-decoration:none;border-radius:6px;">Complete your W-9</a></p>
  <p>If the button does not work, copy this link into your browser:<br>{{.Link}}</p>
  <p>This link expires in {{.ExpiresInDays}} days.</p>
</body>
</html>
`))

type requestTemplateData struct {
	VendorName    string
	Link          string
	ExpiresInDays int
}

// renderRequest は依頼メールのHTML本文とテキスト本文を生成する。
func renderRequest(data requestTemplateData) (string, string, error) {
	var buf bytes.Buffer
	if err := requestHTMLTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("メールテンプレートの描画に失敗しました: %w", err)
	}

	text := fmt.Sprintf(
		"Hello %s,\n\nYou have been asked to complete an IRS Form W-9 through Signica.\n\nComplete your W-9: %s\n\nThis link expires in %d days.\n",
		data.VendorName, data.Link, data.ExpiresInDays,
	)
	return buf.String(), text, nil
}
