// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/adfleek/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// MarkEmailVerified はユーザーのメール検証済みフラグを立てる。
	MarkEmailVerified(ctx context.Context, id string) error

	// UpdatePasswordHash はユーザーのパスワードハッシュを更新する。
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// AuthTokenRepository はOTPコード・パスワード再設定トークンの永続化インターフェース。
type AuthTokenRepository interface {
	// Create は認証トークンを作成する。
	Create(ctx context.Context, token *model.AuthToken) error

	// FindActiveByUserAndPurpose は指定ユーザー・用途の未消費かつ有効期限内の
	// トークンを新しい順に返す。見つからない場合は空スライスを返す。
	FindActiveByUserAndPurpose(ctx context.Context, userID string, purpose model.TokenPurpose) ([]*model.AuthToken, error)

	// FindActiveByID は指定IDの未消費かつ有効期限内のトークンを取得する。
	// 見つからない場合はnilを返す。パスワード再設定リンクの照合に使用する。
	FindActiveByID(ctx context.Context, id string) (*model.AuthToken, error)

	// MarkConsumed はトークンを消費済みにする。
	MarkConsumed(ctx context.Context, id string) error
}

// ConversationRepository は会話データの永続化インターフェース。
// すべての読み書きは所有者でフィルタし、クエリ境界で認可を担保する。
type ConversationRepository interface {
	// Create は最初のターンを含む会話を作成する。
	Create(ctx context.Context, conv *model.Conversation) error

	// AppendTurn は会話のmessages配列にターンを原子的に追加する。
	// id・所有者フィルタ付きの単一UPDATEで行うため、同一クライアントの
	// 逐次送信間でlost updateは発生しない。
	// 対象が存在しないか所有者が異なる場合はConversationNotFoundエラーを返す。
	AppendTurn(ctx context.Context, ownerID, conversationID string, turn model.GenerationTurn) error

	// FindByID は所有者スコープで会話を全件ハイドレートする。
	// 存在しない場合と所有者が異なる場合はどちらもnilを返す。
	FindByID(ctx context.Context, ownerID, conversationID string) (*model.Conversation, error)

	// ListByOwner は所有者の会話をupdated_atの新しい順に最大limit件返す。
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.ConversationSummary, error)
}

// LibraryRepository はユーザーごとの画像ライブラリの永続化インターフェース。
type LibraryRepository interface {
	// PrependImage はライブラリの先頭にエントリを追加する（スタック順）。
	// ライブラリが未作成の場合はupsertで遅延作成する。
	PrependImage(ctx context.Context, ownerID string, entry model.LibraryEntry) error

	// ListByOwner はライブラリのエントリを新しい順に返す。
	// ライブラリが未作成の場合は空スライスを返す。
	ListByOwner(ctx context.Context, ownerID string) ([]model.LibraryEntry, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
