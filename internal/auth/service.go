// Package auth はメール＋パスワード認証、OTPメール検証、Google OAuth、
// パスワード再設定、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/adfleek/internal/mail"
	"github.com/hitoshi/adfleek/internal/model"
	"github.com/hitoshi/adfleek/internal/repository"
)

// bcryptCost はパスワード・OTPハッシュのコスト係数。
const bcryptCost = 10

// otpDigits はOTPコードの桁数。
const otpDigits = 6

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string // "google" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 将来的に複数IdP（Google, GitHub等）に対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int           // セッション有効期間（秒）
	OTPTTL        time.Duration // OTPコードの有効期間
	ResetTokenTTL time.Duration // パスワード再設定トークンの有効期間
	BaseURL       string        // 再設定リンクのベースURL
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	tokenRepo   repository.AuthTokenRepository
	mailer      mail.Sender
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	tokenRepo repository.AuthTokenRepository,
	mailer mail.Sender,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		tokenRepo:   tokenRepo,
		mailer:      mailer,
		config:      config,
	}
}

// Signup はメール＋パスワードでユーザーを仮登録し、OTPコードをメールする。
// 検証完了までEmailVerifiedはfalseのまま。既存の検証済みメールアドレスは
// 重複エラーになるが、未検証ユーザーの再サインアップはOTPの再発行として扱う。
func (s *Service) Signup(ctx context.Context, email, password string) error {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user by email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if existing != nil {
		if existing.EmailVerified {
			return model.NewEmailTakenError()
		}
		// 未検証のままのユーザーは最後に入力したパスワードを有効にしてOTPを再発行する
		if err := s.userRepo.UpdatePasswordHash(ctx, existing.ID, string(hash)); err != nil {
			return fmt.Errorf("failed to update password hash: %w", err)
		}
		return s.issueOTP(ctx, existing)
	}

	now := time.Now()
	user := &model.User{
		ID:            uuid.New().String(),
		Email:         email,
		Name:          nameFromEmail(email),
		PasswordHash:  string(hash),
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user signed up",
		slog.String("user_id", user.ID),
		slog.String("email", email),
	)

	return s.issueOTP(ctx, user)
}

// ResendOTP はOTPコードを再発行する。
// 対象が存在しない・既に検証済みの場合もエラーの内容からメールアドレスの
// 登録有無が判別できないよう、同一のエラーを返す。
func (s *Service) ResendOTP(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil || user.EmailVerified {
		return model.NewInvalidOTPError()
	}
	return s.issueOTP(ctx, user)
}

// VerifyOTP はOTPコードを検証し、成功時にユーザーを検証済みにして
// セッションを発行する。
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*model.Session, *model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return nil, nil, model.NewInvalidOTPError()
	}

	tokens, err := s.tokenRepo.FindActiveByUserAndPurpose(ctx, user.ID, model.TokenPurposeVerifyEmail)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find otp tokens: %w", err)
	}

	var matched *model.AuthToken
	for _, token := range tokens {
		if bcrypt.CompareHashAndPassword([]byte(token.SecretHash), []byte(code)) == nil {
			matched = token
			break
		}
	}
	if matched == nil {
		return nil, nil, model.NewInvalidOTPError()
	}

	if err := s.tokenRepo.MarkConsumed(ctx, matched.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to consume otp token: %w", err)
	}
	if err := s.userRepo.MarkEmailVerified(ctx, user.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to mark email verified: %w", err)
	}
	user.EmailVerified = true

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("email verified",
		slog.String("user_id", user.ID),
	)
	return session, user, nil
}

// Login はメール＋パスワードでログインし、セッションを発行する。
// ユーザー不在とパスワード不一致は同一のエラーとして扱う。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	if !user.EmailVerified {
		return nil, nil, model.NewEmailNotVerifiedError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
	)
	return session, user, nil
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 未登録ユーザーの場合はusersレコードとidentitiesレコードを同時に自動作成する。
// IdP側でメール確認済みのため、作成時点でEmailVerifiedはtrueになる。
// 登録済みユーザーの場合はidentitiesテーブルで既存ユーザーを特定しログインする。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	var userID string

	if identity != nil {
		userID = identity.UserID
		slog.Info("existing user logged in",
			slog.String("user_id", userID),
			slog.String("provider", userInfo.Provider),
		)
	} else {
		now := time.Now()

		newUser := &model.User{
			ID:            uuid.New().String(),
			Email:         userInfo.Email,
			Name:          userInfo.Name,
			EmailVerified: true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		newIdentity := &model.Identity{
			ID:             uuid.New().String(),
			UserID:         newUser.ID,
			Provider:       userInfo.Provider,
			ProviderUserID: userInfo.ProviderUserID,
			CreatedAt:      now,
		}

		if err := s.userRepo.CreateWithIdentity(ctx, newUser, newIdentity); err != nil {
			return nil, fmt.Errorf("failed to create user and identity: %w", err)
		}

		userID = newUser.ID
		slog.Info("new user created from oauth",
			slog.String("user_id", userID),
			slog.String("email", userInfo.Email),
			slog.String("provider", userInfo.Provider),
		)
	}

	session, err := s.createSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// SendPasswordResetLink はパスワード再設定リンクをメールする。
// メールアドレスの登録有無を漏らさないため、未登録でも成功として扱う。
func (s *Service) SendPasswordResetLink(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		// アカウント列挙を防ぐため成功扱い
		return nil
	}

	secret, err := generateSecret()
	if err != nil {
		return fmt.Errorf("failed to generate reset secret: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash reset secret: %w", err)
	}

	token := &model.AuthToken{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		Purpose:    model.TokenPurposePasswordReset,
		SecretHash: string(hash),
		ExpiresAt:  time.Now().Add(s.config.ResetTokenTTL),
		CreatedAt:  time.Now(),
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	// リンクにはトークンIDとシークレットの組を載せる。DBにはハッシュのみ残る。
	resetURL := fmt.Sprintf("%s/reset-password/%s.%s", s.config.BaseURL, token.ID, secret)
	subject, body := mail.PasswordResetEmail(resetURL)
	if err := s.mailer.Send(user.Email, subject, body); err != nil {
		return fmt.Errorf("failed to send reset mail: %w", err)
	}

	slog.Info("password reset link sent",
		slog.String("user_id", user.ID),
	)
	return nil
}

// ResetPassword は再設定トークンを検証し、パスワードを更新する。
// 成功時は当該ユーザーの全セッションを破棄する（全端末ログアウト）。
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	tokenID, secret, ok := splitResetToken(rawToken)
	if !ok {
		return model.NewInvalidResetTokenError()
	}

	token, err := s.tokenRepo.FindActiveByID(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("failed to find reset token: %w", err)
	}
	if token == nil || token.Purpose != model.TokenPurposePasswordReset {
		return model.NewInvalidResetTokenError()
	}
	if bcrypt.CompareHashAndPassword([]byte(token.SecretHash), []byte(secret)) != nil {
		return model.NewInvalidResetTokenError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.tokenRepo.MarkConsumed(ctx, token.ID); err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, token.UserID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.sessionRepo.DeleteByUserID(ctx, token.UserID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	slog.Info("password reset completed",
		slog.String("user_id", token.UserID),
	)
	return nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	return user, nil
}

// issueOTP はOTPコードを発行してメールする。平文コードはメールにのみ存在する。
func (s *Service) issueOTP(ctx context.Context, user *model.User) error {
	code, err := generateOTPCode()
	if err != nil {
		return fmt.Errorf("failed to generate otp code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash otp code: %w", err)
	}

	token := &model.AuthToken{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		Purpose:    model.TokenPurposeVerifyEmail,
		SecretHash: string(hash),
		ExpiresAt:  time.Now().Add(s.config.OTPTTL),
		CreatedAt:  time.Now(),
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return fmt.Errorf("failed to create otp token: %w", err)
	}

	subject, body := mail.OTPEmail(code)
	if err := s.mailer.Send(user.Email, subject, body); err != nil {
		return fmt.Errorf("failed to send otp mail: %w", err)
	}

	slog.Info("otp issued",
		slog.String("user_id", user.ID),
	)
	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// generateSecret はパスワード再設定用のシークレットを生成する。
func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// generateOTPCode は6桁のOTPコードを生成する。先頭ゼロもあり得る。
func generateOTPCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n), nil
}

// splitResetToken は"<トークンID>.<シークレット>"形式のトークンを分解する。
func splitResetToken(raw string) (tokenID, secret string, ok bool) {
	parts := strings.SplitN(raw, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// nameFromEmail はメールアドレスのローカル部を表示名として使う。
func nameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
