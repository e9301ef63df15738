// Package model はドメインモデルを定義する。
package model

import "time"

// LibraryEntry はユーザーのライブラリに保存された1枚の画像を表す。
// 画像はURL値で参照するため、元の会話が消えてもライブラリには残る。
type LibraryEntry struct {
	ID        string    `json:"id"`
	Src       string    `json:"src"`
	Alt       string    `json:"alt"`
	CreatedAt time.Time `json:"createdAt"`
}
