package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/adfleek/internal/middleware"
	"github.com/hitoshi/adfleek/internal/model"
)

// ConversationServiceInterface は会話履歴ハンドラーが必要とするサービスインターフェース。
type ConversationServiceInterface interface {
	// ListConversations はユーザーの会話サマリーを新しい順に返す。
	ListConversations(ctx context.Context, ownerID string) ([]model.ConversationSummary, error)
	// GetConversation は会話の全文を取得する。
	GetConversation(ctx context.Context, ownerID, conversationID string) (*model.Conversation, error)
}

// ConversationHandler は会話履歴のHTTPハンドラー。
type ConversationHandler struct {
	service ConversationServiceInterface
}

// NewConversationHandler はConversationHandlerを生成する。
func NewConversationHandler(service ConversationServiceInterface) *ConversationHandler {
	return &ConversationHandler{
		service: service,
	}
}

// conversationSummaryResponse は会話サマリーのAPIレスポンス。
type conversationSummaryResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	FirstImageURL string    `json:"firstImageUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// conversationResponse は会話全文のAPIレスポンス。
type conversationResponse struct {
	ID        string                 `json:"id"`
	Title     string                 `json:"title"`
	Messages  []model.GenerationTurn `json:"messages"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// ListConversations は会話履歴の一覧を返す。
// GET /api/conversations
func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
		return
	}

	summaries, err := h.service.ListConversations(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]conversationSummaryResponse, len(summaries))
	for i, s := range summaries {
		results[i] = conversationSummaryResponse{
			ID:            s.ID,
			Title:         s.Title,
			FirstImageURL: s.FirstImageURL,
			CreatedAt:     s.CreatedAt,
			UpdatedAt:     s.UpdatedAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"conversations": results,
	})
}

// GetConversation は会話の全文を返す。
// 不在・他ユーザー所有のいずれもCONVERSATION_NOT_FOUNDになる。
// GET /api/conversations/:id
func (h *ConversationHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
		return
	}

	conversationID := chi.URLParam(r, "id")

	conv, err := h.service.GetConversation(r.Context(), userID, conversationID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conversationResponse{
		ID:        conv.ID,
		Title:     conv.Title,
		Messages:  conv.Messages,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	})
}
