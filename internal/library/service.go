// Package library はユーザーごとの画像ライブラリのドメインロジックを提供する。
package library

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/adfleek/internal/model"
	"github.com/hitoshi/adfleek/internal/repository"
)

// defaultAlt はライブラリ保存時の既定の代替テキスト。
const defaultAlt = "Generated image"

// URLValidator は保存対象の画像URLを検証するインターフェース。
// security.SSRFGuardServiceの部分集合として定義する。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Sanitizer は代替テキストをサニタイズするインターフェース。
type Sanitizer interface {
	SanitizeText(text string) string
}

// SaveRecorder はライブラリ保存メトリクスを記録するインターフェース。
// metrics.Collectorの部分集合として定義する。
type SaveRecorder interface {
	RecordLibrarySave()
}

// nopRecorder はメトリクス未設定時のレコーダー。
type nopRecorder struct{}

func (nopRecorder) RecordLibrarySave() {}

// Service は画像ライブラリのサービス層。
type Service struct {
	repo      repository.LibraryRepository
	validator URLValidator
	sanitizer Sanitizer
	recorder  SaveRecorder
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.LibraryRepository, validator URLValidator, sanitizer Sanitizer, recorder SaveRecorder) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		repo:      repo,
		validator: validator,
		sanitizer: sanitizer,
		recorder:  recorder,
		now:       time.Now,
	}
}

// AddImage は画像URLをユーザーのライブラリ先頭に保存する。
// エントリはURL値で画像を参照するため、元の会話とは独立したライフサイクルを持つ。
// URLは保存前にSSRFガードで検証する（後段のダウンロードプロキシが
// このURLへフェッチを行うため）。
func (s *Service) AddImage(ctx context.Context, ownerID, imageURL, alt string) (*model.LibraryEntry, error) {
	if ownerID == "" {
		return nil, model.NewAuthRequiredError()
	}
	if imageURL == "" {
		return nil, model.NewInvalidImageURLError("URLが空です")
	}
	if err := s.validator.ValidateURL(imageURL); err != nil {
		return nil, model.NewInvalidImageURLError(err.Error())
	}

	alt = s.sanitizer.SanitizeText(alt)
	if alt == "" {
		alt = defaultAlt
	}

	entry := model.LibraryEntry{
		ID:        uuid.New().String(),
		Src:       imageURL,
		Alt:       alt,
		CreatedAt: s.now(),
	}

	if err := s.repo.PrependImage(ctx, ownerID, entry); err != nil {
		return nil, fmt.Errorf("failed to prepend library image: %w", err)
	}

	s.recorder.RecordLibrarySave()
	return &entry, nil
}

// ListImages はユーザーのライブラリのエントリを新しい順に返す。
func (s *Service) ListImages(ctx context.Context, ownerID string) ([]model.LibraryEntry, error) {
	if ownerID == "" {
		return nil, model.NewAuthRequiredError()
	}

	entries, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list library images: %w", err)
	}
	return entries, nil
}
