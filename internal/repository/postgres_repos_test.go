package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/adfleek/internal/model"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// PostgresIdentityRepoはIdentityRepositoryインターフェースを満たすことを検証
func TestPostgresIdentityRepo_ImplementsInterface(t *testing.T) {
	var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
}

// PostgresSessionRepoはSessionRepositoryインターフェースを満たすことを検証
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// PostgresAuthTokenRepoはAuthTokenRepositoryインターフェースを満たすことを検証
func TestPostgresAuthTokenRepo_ImplementsInterface(t *testing.T) {
	var _ AuthTokenRepository = (*PostgresAuthTokenRepo)(nil)
}

// PostgresConversationRepoはConversationRepositoryインターフェースを満たすことを検証
func TestPostgresConversationRepo_ImplementsInterface(t *testing.T) {
	var _ ConversationRepository = (*PostgresConversationRepo)(nil)
}

// PostgresLibraryRepoはLibraryRepositoryインターフェースを満たすことを検証
func TestPostgresLibraryRepo_ImplementsInterface(t *testing.T) {
	var _ LibraryRepository = (*PostgresLibraryRepo)(nil)
}

// 各コンストラクタが正しく初期化されることを検証
func TestNewPostgresRepos_Initialize(t *testing.T) {
	if NewPostgresUserRepo(nil) == nil {
		t.Error("NewPostgresUserRepo returned nil")
	}
	if NewPostgresIdentityRepo(nil) == nil {
		t.Error("NewPostgresIdentityRepo returned nil")
	}
	if NewPostgresSessionRepo(nil) == nil {
		t.Error("NewPostgresSessionRepo returned nil")
	}
	if NewPostgresAuthTokenRepo(nil) == nil {
		t.Error("NewPostgresAuthTokenRepo returned nil")
	}
	if NewPostgresConversationRepo(nil) == nil {
		t.Error("NewPostgresConversationRepo returned nil")
	}
	if NewPostgresLibraryRepo(nil) == nil {
		t.Error("NewPostgresLibraryRepo returned nil")
	}
}

// 期限切れセッションの判定ロジックを検証
func TestSession_Expiry(t *testing.T) {
	expired := &model.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if !expired.ExpiresAt.Before(time.Now()) {
		t.Error("session should be expired")
	}

	valid := &model.Session{
		ID:        "sess-2",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if valid.ExpiresAt.Before(time.Now()) {
		t.Error("session should still be valid")
	}
}
