// Package model はドメインモデルを定義する。
package model

import "time"

// AspectRatio は生成画像の縦横比を表す。
type AspectRatio string

const (
	AspectRatioSquare    AspectRatio = "1:1"
	AspectRatioLandscape AspectRatio = "16:9"
	AspectRatioPortrait  AspectRatio = "9:16"
	AspectRatioClassic   AspectRatio = "4:3"
)

// IsValid はサポートされている縦横比かどうかを返す。
func (a AspectRatio) IsValid() bool {
	switch a {
	case AspectRatioSquare, AspectRatioLandscape, AspectRatioPortrait, AspectRatioClassic:
		return true
	}
	return false
}

// 生成バリエーション数の許容範囲。
const (
	MinVariations = 1
	MaxVariations = 8
)

// GenerationTurn は会話内の1回のプロンプト→画像生成のやり取りを表す。
// 一度書き込まれたターンは変更も削除もされない（追記専用）。
//
// IDはクライアント側で採番するミリ秒タイムスタンプで、サーバー確定前の
// リスト表示用の識別にのみ使用する。グローバル一意性は保証されないため、
// 永続化のアドレッシングには会話IDを使用すること。
type GenerationTurn struct {
	ID           int64       `json:"id"`
	Prompt       string      `json:"prompt"`
	AspectRatio  AspectRatio `json:"aspectRatio"`
	Variations   int         `json:"variations"`
	ImageURLs    []string    `json:"imageUrls"`
	IsRefinement bool        `json:"isRefinement"`
	RefinedFrom  string      `json:"refinedFrom,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// Conversation はユーザーの生成履歴（チャット形式の会話）を表す。
// TitleとMessagesの先頭ターンは最初のプロンプトで固定され、以後変化しない。
// 所有者以外からの読み書きは許可されない。
type Conversation struct {
	ID        string
	OwnerID   string
	Title     string
	Messages  []GenerationTurn
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConversationSummary は履歴サイドバー表示用の投影。
// 最初のターンの先頭画像をサムネイルとして持つ。
type ConversationSummary struct {
	ID            string
	Title         string
	FirstImageURL string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
