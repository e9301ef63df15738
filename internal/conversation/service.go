// Package conversation は会話履歴のドメインロジックを提供する。
// 書き込み（会話作成・ターン追加）と、サイドバー用の読み取り専用投影
// （履歴インデックス）の両方を担う。
package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hitoshi/adfleek/internal/model"
	"github.com/hitoshi/adfleek/internal/repository"
)

// historyLimit はサイドバーに返す会話の最大件数。
const historyLimit = 20

// Service は会話管理のサービス層。
type Service struct {
	repo repository.ConversationRepository
	now  func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ConversationRepository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// CreateConversation は最初のターンを含む新しい会話を作成し、会話IDを返す。
// タイトルは最初のターンのプロンプトで固定され、以後変更されない。
// 会話IDはURLクエリに載せるため短縮UUIDを使用する。
func (s *Service) CreateConversation(ctx context.Context, ownerID string, turn model.GenerationTurn) (string, error) {
	if ownerID == "" {
		return "", model.NewAuthRequiredError()
	}

	now := s.now()
	conv := &model.Conversation{
		ID:        shortuuid.New(),
		OwnerID:   ownerID,
		Title:     turn.Prompt,
		Messages:  []model.GenerationTurn{turn},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, conv); err != nil {
		return "", fmt.Errorf("会話の作成に失敗しました: %w", err)
	}

	return conv.ID, nil
}

// AppendTurn は既存会話にターンを追記する。
// ターンは追記専用で、追加後に変更されることはない。
func (s *Service) AppendTurn(ctx context.Context, ownerID, conversationID string, turn model.GenerationTurn) error {
	if ownerID == "" {
		return model.NewAuthRequiredError()
	}

	if err := s.repo.AppendTurn(ctx, ownerID, conversationID, turn); err != nil {
		if apiErr, ok := err.(*model.APIError); ok {
			return apiErr
		}
		return fmt.Errorf("ターンの追記に失敗しました: %w", err)
	}
	return nil
}

// ListConversations は所有者の会話一覧を新しい順に最大20件返す。
// 認可はリポジトリのクエリ境界（owner_idフィルタ）で担保される。
func (s *Service) ListConversations(ctx context.Context, ownerID string) ([]model.ConversationSummary, error) {
	if ownerID == "" {
		return nil, model.NewAuthRequiredError()
	}

	summaries, err := s.repo.ListByOwner(ctx, ownerID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("会話一覧の取得に失敗しました: %w", err)
	}
	return summaries, nil
}

// GetConversation は会話を全件ハイドレートして返す。
// 存在しない場合と他ユーザー所有の場合はどちらも同じNotFoundエラーになり、
// IDの列挙から存在情報が漏れることはない。
func (s *Service) GetConversation(ctx context.Context, ownerID, conversationID string) (*model.Conversation, error) {
	if ownerID == "" {
		return nil, model.NewAuthRequiredError()
	}

	conv, err := s.repo.FindByID(ctx, ownerID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("会話の取得に失敗しました: %w", err)
	}
	if conv == nil {
		return nil, model.NewConversationNotFoundError(conversationID)
	}
	return conv, nil
}
