// Package security はアプリケーションのセキュリティ機能を提供する。
//
// DescriptionSanitizerService はフィードから抽出したエントリの説明文を
// サニタイズし、XSS攻撃などのセキュリティリスクからユーザーを保護する。
// 説明文はプレーンテキストとして扱う設計のため、bluemondayの
// StrictPolicyですべてのタグを除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// DescriptionSanitizerService はエントリ説明文のサニタイズ機能のインターフェースを定義する。
// スクレイパーのpostprocess段階で使用される。
type DescriptionSanitizerService interface {
	// Sanitize は説明文からすべてのHTMLタグを除去し、
	// エンティティをデコードしたプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// descriptionSanitizer はDescriptionSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type descriptionSanitizer struct {
	policy *bluemonday.Policy
}

// NewDescriptionSanitizer はDescriptionSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはタグを一切許可しない。script/iframe/styleおよび
// すべてのon*イベント属性はタグごと除去される。
func NewDescriptionSanitizer() *descriptionSanitizer {
	return &descriptionSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は説明文からすべてのHTMLタグを除去したプレーンテキストを返す。
// bluemondayはタグ除去後のテキストをエスケープして返すため、
// 表示用テキストとして扱えるようエンティティをデコードして返す。
func (s *descriptionSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
