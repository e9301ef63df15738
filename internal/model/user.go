// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// メールアドレス＋パスワードでのサインアップ時はOTP検証が完了するまで
// EmailVerifiedはfalseのまま。Googleサインイン経由の場合は作成時点で検証済み。
type User struct {
	ID            string
	Email         string
	Name          string
	PasswordHash  string // Googleサインインのみのユーザーは空
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// 将来的に複数のIdP（Google, GitHub等）に対応可能な構造。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenPurpose は認証トークンの用途を表す。
type TokenPurpose string

const (
	// TokenPurposeVerifyEmail はサインアップ時のOTPメール検証用。
	TokenPurposeVerifyEmail TokenPurpose = "verify_email"
	// TokenPurposePasswordReset はパスワード再設定リンク用。
	TokenPurposePasswordReset TokenPurpose = "password_reset"
)

// AuthToken はOTPコードおよびパスワード再設定トークンを表す。
// SecretHashにはコード/トークンのbcryptハッシュのみを保持し、平文は保存しない。
type AuthToken struct {
	ID         string
	UserID     string
	Purpose    TokenPurpose
	SecretHash string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}
