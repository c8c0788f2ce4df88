package security

import (
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

// NormalizeEmail はメールアドレスを比較用の正規形に変換する。
// ローカル部は小文字化し、ドメインはIDNAのLookupプロファイルでASCII（Punycode）に変換する。
// "@"を含まない、またはローカル部・ドメインが空の場合はエラーを返す。
func NormalizeEmail(raw string) (string, error) {
	addr := strings.TrimSpace(raw)
	at := strings.LastIndex(addr, "@")
	if at <= 0 || at == len(addr)-1 {
		return "", fmt.Errorf("invalid email address: %q", raw)
	}

	local := strings.ToLower(addr[:at])
	domain, err := idna.Lookup.ToASCII(addr[at+1:])
	if err != nil {
		return "", fmt.Errorf("invalid email domain %q: %w", addr[at+1:], err)
	}

	return local + "@" + strings.ToLower(domain), nil
}
