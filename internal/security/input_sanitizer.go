// Package security はアプリケーションのセキュリティ機能を提供する。
//
// 利用者が入力する自由記述（ベンダー名、氏名、住所など）はbluemondayのStrictPolicyで
// マークアップを除去してから保存する。保存値はプレーンテキストとして扱う。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// InputSanitizer は自由記述入力のサニタイズ機能のインターフェースを定義する。
type InputSanitizer interface {
	// Clean はタグを全て除去し、前後の空白を取り除いたプレーンテキストを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Clean(raw string) string
}

// inputSanitizer はInputSanitizerの実装。
// bluemondayのPolicyはスレッドセーフ。
type inputSanitizer struct {
	policy *bluemonday.Policy
}

// NewInputSanitizer はStrictPolicyを使うInputSanitizerを生成する。
func NewInputSanitizer() *inputSanitizer {
	return &inputSanitizer{policy: bluemonday.StrictPolicy()}
}

// maxCleanPasses は除去を繰り返す上限。多重にエンティティ化された入力でも収束させる。
const maxCleanPasses = 4

// Clean はタグを除去したプレーンテキストを返す。
// StrictPolicyはエスケープ済みの文字列を返すため、保存用にアンエスケープする。
// アンエスケープでタグが現れる入力（&lt;b&gt; など）もあるため、変化しなくなるまで繰り返す。
func (s *inputSanitizer) Clean(raw string) string {
	cleaned := strings.TrimSpace(raw)
	for i := 0; i < maxCleanPasses && cleaned != ""; i++ {
		next := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(cleaned)))
		if next == cleaned {
			break
		}
		cleaned = next
	}
	return cleaned
}
