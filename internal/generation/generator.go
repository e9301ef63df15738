// Package generation は画像生成のスタブ実装を提供する。
// 実際の推論サービスは存在せず、プレースホルダー画像のURLを固定レイテンシ
// 付きで返す。本物の推論基盤に差し替える場合はGeneratorインターフェースを
// 実装すればよい。
package generation

import (
	"fmt"
	"net/url"
	"time"

	"github.com/hitoshi/adfleek/internal/model"
)

// Generator は画像生成器のインターフェース。
type Generator interface {
	// ImageURLs はプロンプトに対する生成画像のURL一式を返す。
	// リファインメントの場合variationsは常に1として扱われる。
	ImageURLs(ratio model.AspectRatio, variations int, isRefinement bool) []string

	// Latency は1回の生成にかかる（シミュレートされた）所要時間を返す。
	Latency() time.Duration
}

// 縦横比ごとのプレースホルダー画像サイズ。
var placeholderSizes = map[model.AspectRatio]string{
	model.AspectRatioSquare:    "1024x1024",
	model.AspectRatioLandscape: "1280x720",
	model.AspectRatioPortrait:  "720x1280",
	model.AspectRatioClassic:   "1024x768",
}

// PlaceholderGenerator はplacehold.co形式のURLを返すスタブ生成器。
type PlaceholderGenerator struct {
	baseURL string
	latency time.Duration
}

// NewPlaceholderGenerator はPlaceholderGeneratorを生成する。
func NewPlaceholderGenerator(baseURL string, latency time.Duration) *PlaceholderGenerator {
	return &PlaceholderGenerator{
		baseURL: baseURL,
		latency: latency,
	}
}

// ImageURLs はプレースホルダー画像のURL一式を返す。
func (g *PlaceholderGenerator) ImageURLs(ratio model.AspectRatio, variations int, isRefinement bool) []string {
	size, ok := placeholderSizes[ratio]
	if !ok {
		size = placeholderSizes[model.AspectRatioSquare]
	}

	if isRefinement {
		variations = 1
	}

	urls := make([]string, variations)
	for i := range urls {
		text := fmt.Sprintf("Generated %d", i+1)
		if isRefinement {
			text = "Refined"
		}
		params := url.Values{"text": {text}}
		urls[i] = fmt.Sprintf("%s/%s.png?%s", g.baseURL, size, params.Encode())
	}
	return urls
}

// Latency はシミュレートされた生成所要時間を返す。
func (g *PlaceholderGenerator) Latency() time.Duration {
	return g.latency
}

// compile-time interface check
var _ Generator = (*PlaceholderGenerator)(nil)
