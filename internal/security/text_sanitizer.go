// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はユーザー入力のテキスト（プロンプト、ライブラリの
// 代替テキスト、問い合わせフォームの本文）をサニタイズし、保存値や
// 送信メールにHTMLが混入することを防ぐ。bluemondayのStrictPolicyによる
// 全タグ除去を行う。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はテキストサニタイズ機能のインターフェースを定義する。
type TextSanitizerService interface {
	// SanitizeText はテキストから全てのHTMLタグを除去し、
	// エンティティをデコードした上で前後の空白を取り除いて返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(text string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicy（全タグ・全属性を除去）を使用する。プロンプトや代替テキストは
// プレーンテキストとして扱うため、許可するタグは存在しない。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はテキストから全てのHTMLタグを除去して返す。
// bluemondayはタグ除去後にエンティティをエスケープするため、
// プレーンテキスト用途ではデコードして元の文字に戻す。
func (s *textSanitizer) SanitizeText(text string) string {
	stripped := s.policy.Sanitize(text)
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// compile-time interface check
var _ TextSanitizerService = (*textSanitizer)(nil)
