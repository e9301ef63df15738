package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/adfleek/internal/model"
)

// PostgresConversationRepo はPostgreSQLを使用した会話リポジトリ。
// 会話のターン列はjsonb配列として1行に保持する。ターンの追加は
// id・所有者フィルタ付きの単一UPDATEによるjsonb連結で行い、
// read-modify-writeを挟まないため呼び出し単位で原子的になる。
type PostgresConversationRepo struct {
	db *sql.DB
}

// NewPostgresConversationRepo はPostgresConversationRepoを生成する。
func NewPostgresConversationRepo(db *sql.DB) *PostgresConversationRepo {
	return &PostgresConversationRepo{db: db}
}

// Create は最初のターンを含む会話を作成する。
func (r *PostgresConversationRepo) Create(ctx context.Context, conv *model.Conversation) error {
	messages, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO conversations (id, owner_id, title, messages, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		conv.ID, conv.OwnerID, conv.Title, messages, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

// AppendTurn は会話のmessages配列にターンを原子的に追加する。
// 対象が存在しないか所有者が異なる場合はConversationNotFoundエラーを返す。
// 不在と他者所有を区別しないため、会話IDの総当たりで存在が漏れることはない。
func (r *PostgresConversationRepo) AppendTurn(ctx context.Context, ownerID, conversationID string, turn model.GenerationTurn) error {
	turnJSON, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE conversations
		 SET messages = messages || $3::jsonb, updated_at = now()
		 WHERE id = $1 AND owner_id = $2`,
		conversationID, ownerID, turnJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewConversationNotFoundError(conversationID)
	}
	return nil
}

// FindByID は所有者スコープで会話を全件ハイドレートする。
// 存在しない場合と所有者が異なる場合はどちらもnilを返す。
func (r *PostgresConversationRepo) FindByID(ctx context.Context, ownerID, conversationID string) (*model.Conversation, error) {
	conv := &model.Conversation{}
	var messages []byte

	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, messages, created_at, updated_at
		 FROM conversations
		 WHERE id = $1 AND owner_id = $2`,
		conversationID, ownerID,
	).Scan(&conv.ID, &conv.OwnerID, &conv.Title, &messages, &conv.CreatedAt, &conv.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}

	if err := json.Unmarshal(messages, &conv.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}

	return conv, nil
}

// ListByOwner は所有者の会話をupdated_atの新しい順に最大limit件返す。
// サイドバー表示用に最初のターンの先頭画像URLだけを射影する。
func (r *PostgresConversationRepo) ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.ConversationSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, COALESCE(messages->0->'imageUrls'->>0, ''), created_at, updated_at
		 FROM conversations
		 WHERE owner_id = $1
		 ORDER BY updated_at DESC
		 LIMIT $2`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	summaries := []model.ConversationSummary{}
	for rows.Next() {
		var s model.ConversationSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.FirstImageURL, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}

	return summaries, nil
}

// compile-time interface check
var _ ConversationRepository = (*PostgresConversationRepo)(nil)
