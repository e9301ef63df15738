package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/adfleek/internal/mail"
	"github.com/hitoshi/adfleek/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// SetupAuthRoutes は認証関連のルーティングを設定したchi.Routerを返す。
func SetupAuthRoutes(service AuthServiceInterface, config AuthHandlerConfig) http.Handler {
	r := chi.NewRouter()
	h := NewAuthHandler(service, config)

	r.Route("/auth", func(r chi.Router) {
		// メール＋パスワード認証
		r.Post("/signup", h.Signup)
		r.Post("/verify-otp", h.VerifyOTP)
		r.Post("/resend-otp", h.ResendOTP)
		r.Post("/login", h.Login)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)

		// OAuthフロー
		r.Get("/google/login", h.GoogleLogin)
		r.Get("/google/callback", h.GoogleCallback)

		// セッション管理
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
	})

	return r
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ヘルスチェック・メトリクス
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.HTTPStatusRecorder
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ワークスペース
	OrchestratorProvider OrchestratorProvider
	PromptSanitizer      PromptSanitizer

	// 会話履歴
	ConversationService ConversationServiceInterface

	// ライブラリ
	LibraryService LibraryServiceInterface
	ImageFetcher   ImageFetcher

	// 問い合わせ
	MailSender   mail.Sender
	SupportEmail string
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → SessionMiddleware → CSRFMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// 認証ルート（/auth/*）と問い合わせ（/api/help）はミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS ミドルウェアを最上位に適用（全ルートに効く）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	// ステータスコードのメトリクス記録（全ルートに効く）
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	workspaceHandler := NewWorkspaceHandler(deps.OrchestratorProvider, deps.PromptSanitizer)
	conversationHandler := NewConversationHandler(deps.ConversationService)
	libraryHandler := NewLibraryHandler(deps.LibraryService, deps.ImageFetcher)
	helpHandler := NewHelpHandler(deps.MailSender, deps.SupportEmail)

	// --- 認証不要のルート ---

	// ヘルスチェック（Dockerヘルスチェック・ロードバランサー用）
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Prometheusスクレイプ用エンドポイント
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 認証ルート
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/verify-otp", authHandler.VerifyOTP)
		r.Post("/resend-otp", authHandler.ResendOTP)
		r.Post("/login", authHandler.Login)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)
		r.Get("/google/login", authHandler.GoogleLogin)
		r.Get("/google/callback", authHandler.GoogleCallback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// 問い合わせフォームはログイン前でも利用できる
	r.Post("/api/help", helpHandler.SendQuery)

	// CSRFトークン取得エンドポイント
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ワークスペース（アクティブな会話）
		r.Route("/api/workspace", func(r chi.Router) {
			r.Get("/", workspaceHandler.GetState)

			// 画像生成を伴うインテントには生成専用レート制限を追加
			r.With(deps.RateLimiter.GenerationMiddleware()).Post("/generate", workspaceHandler.Generate)
			r.With(deps.RateLimiter.GenerationMiddleware()).Post("/regenerate", workspaceHandler.Regenerate)

			r.Post("/select", workspaceHandler.SelectImage)
			r.Post("/cancel", workspaceHandler.Cancel)
			r.Post("/route", workspaceHandler.SetRoute)
		})

		// 会話履歴
		r.Route("/api/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.ListConversations)
			r.Get("/{id}", conversationHandler.GetConversation)
		})

		// 画像ライブラリ
		r.Route("/api/library", func(r chi.Router) {
			r.Get("/", libraryHandler.ListImages)
			r.Post("/", libraryHandler.AddImage)
			r.Get("/download", libraryHandler.Download)
		})
	})

	return r
}
