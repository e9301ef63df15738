package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/adfleek/internal/model"
)

// PostgresAuthTokenRepo はPostgreSQLを使用した認証トークンリポジトリ。
// OTPコードとパスワード再設定トークンの両方を扱う。
type PostgresAuthTokenRepo struct {
	db *sql.DB
}

// NewPostgresAuthTokenRepo はPostgresAuthTokenRepoを生成する。
func NewPostgresAuthTokenRepo(db *sql.DB) *PostgresAuthTokenRepo {
	return &PostgresAuthTokenRepo{db: db}
}

// Create は認証トークンを作成する。
func (r *PostgresAuthTokenRepo) Create(ctx context.Context, token *model.AuthToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_tokens (id, user_id, purpose, secret_hash, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		token.ID, token.UserID, token.Purpose, token.SecretHash, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create auth token: %w", err)
	}
	return nil
}

// FindActiveByUserAndPurpose は指定ユーザー・用途の未消費かつ有効期限内の
// トークンを新しい順に返す。見つからない場合は空スライスを返す。
func (r *PostgresAuthTokenRepo) FindActiveByUserAndPurpose(ctx context.Context, userID string, purpose model.TokenPurpose) ([]*model.AuthToken, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, purpose, secret_hash, expires_at, consumed_at, created_at
		 FROM auth_tokens
		 WHERE user_id = $1 AND purpose = $2 AND consumed_at IS NULL AND expires_at > now()
		 ORDER BY created_at DESC`,
		userID, purpose,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query auth tokens: %w", err)
	}
	defer rows.Close()

	return scanAuthTokens(rows)
}

// FindActiveByID は指定IDの未消費かつ有効期限内のトークンを取得する。
// 見つからない場合はnilを返す。
func (r *PostgresAuthTokenRepo) FindActiveByID(ctx context.Context, id string) (*model.AuthToken, error) {
	token := &model.AuthToken{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, purpose, secret_hash, expires_at, consumed_at, created_at
		 FROM auth_tokens
		 WHERE id = $1 AND consumed_at IS NULL AND expires_at > now()`,
		id,
	).Scan(&token.ID, &token.UserID, &token.Purpose, &token.SecretHash, &token.ExpiresAt, &token.ConsumedAt, &token.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find auth token: %w", err)
	}

	return token, nil
}

// MarkConsumed はトークンを消費済みにする。
func (r *PostgresAuthTokenRepo) MarkConsumed(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE auth_tokens SET consumed_at = now() WHERE id = $1 AND consumed_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark token consumed: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("auth token not found or already consumed: %s", id)
	}
	return nil
}

// scanAuthTokens は結果セットをAuthTokenスライスに変換する。
func scanAuthTokens(rows *sql.Rows) ([]*model.AuthToken, error) {
	tokens := []*model.AuthToken{}
	for rows.Next() {
		token := &model.AuthToken{}
		if err := rows.Scan(&token.ID, &token.UserID, &token.Purpose, &token.SecretHash, &token.ExpiresAt, &token.ConsumedAt, &token.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan auth token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate auth tokens: %w", err)
	}
	return tokens, nil
}

// compile-time interface check
var _ AuthTokenRepository = (*PostgresAuthTokenRepo)(nil)
