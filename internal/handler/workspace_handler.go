package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/adfleek/internal/middleware"
	"github.com/hitoshi/adfleek/internal/model"
	"github.com/hitoshi/adfleek/internal/workspace"
)

// OrchestratorProvider はセッションごとのワークスペースを提供するインターフェース。
// workspace.Registryの部分集合として定義する。
type OrchestratorProvider interface {
	GetOrCreate(sessionID, ownerID string) *workspace.Orchestrator
}

// PromptSanitizer はプロンプト文字列をサニタイズするインターフェース。
type PromptSanitizer interface {
	SanitizeText(text string) string
}

// WorkspaceHandler はアクティブな会話ワークスペースのHTTPハンドラー。
// 生成・選択・再生成・キャンセル・ルート変更の各インテントを受け付ける。
type WorkspaceHandler struct {
	provider  OrchestratorProvider
	sanitizer PromptSanitizer
}

// NewWorkspaceHandler はWorkspaceHandlerを生成する。
func NewWorkspaceHandler(provider OrchestratorProvider, sanitizer PromptSanitizer) *WorkspaceHandler {
	return &WorkspaceHandler{
		provider:  provider,
		sanitizer: sanitizer,
	}
}

// generateRequest は生成インテントのリクエストボディ。
type generateRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
	Variations  int    `json:"variations"`
}

// selectImageRequest はリファインメント選択のリクエストボディ。
type selectImageRequest struct {
	ImageURL          string `json:"imageUrl"`
	OriginatingPrompt string `json:"originatingPrompt"`
}

// setRouteRequest はルート変更のリクエストボディ。
// conversationIdが空文字の場合は「新しい会話」への遷移を意味する。
type setRouteRequest struct {
	ConversationID string `json:"conversationId"`
}

// workspaceStateResponse はワークスペース状態のAPIレスポンス。
type workspaceStateResponse struct {
	Generations          []model.GenerationTurn `json:"generations"`
	SelectedImage        string                 `json:"selectedImage,omitempty"`
	LastPrompt           string                 `json:"lastPrompt"`
	IsSubmitting         bool                   `json:"isSubmitting"`
	IsLoading            bool                   `json:"isLoading"`
	ActiveConversationID string                 `json:"activeConversationId,omitempty"`
}

// Generate は生成インテントを処理する。
// POST /api/workspace/generate
func (h *WorkspaceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestratorFromRequest(w, r)
	if !ok {
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	in, apiErr := h.validateGenerateRequest(req)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	turn, err := orch.Generate(r.Context(), *in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(turn)
}

// Regenerate はリファインメント選択を破棄して生成をやり直す。
// POST /api/workspace/regenerate
func (h *WorkspaceHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestratorFromRequest(w, r)
	if !ok {
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	in, apiErr := h.validateGenerateRequest(req)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	turn, err := orch.Regenerate(r.Context(), *in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(turn)
}

// SelectImage はリファインメント対象の画像を選択する。
// ローカルな状態変更のみで常に成功する。
// POST /api/workspace/select
func (h *WorkspaceHandler) SelectImage(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestratorFromRequest(w, r)
	if !ok {
		return
	}

	var req selectImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.ImageURL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidImageURLError("URLが空です"))
		return
	}

	orch.SelectImageForRefinement(req.ImageURL, req.OriginatingPrompt)
	writeWorkspaceState(w, orch.Snapshot())
}

// Cancel は送信中スピナーとリファインメント選択をクリアする。
// 追記済みのターンは取り消さない。
// POST /api/workspace/cancel
func (h *WorkspaceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestratorFromRequest(w, r)
	if !ok {
		return
	}

	orch.Cancel()
	writeWorkspaceState(w, orch.Snapshot())
}

// SetRoute はURLの会話ID変更をワークスペースに反映する。
// POST /api/workspace/route
func (h *WorkspaceHandler) SetRoute(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestratorFromRequest(w, r)
	if !ok {
		return
	}

	var req setRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := orch.SetRoute(r.Context(), req.ConversationID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeWorkspaceState(w, orch.Snapshot())
}

// GetState はワークスペースの現在状態を返す。
// GET /api/workspace
func (h *WorkspaceHandler) GetState(w http.ResponseWriter, r *http.Request) {
	orch, ok := h.orchestratorFromRequest(w, r)
	if !ok {
		return
	}

	writeWorkspaceState(w, orch.Snapshot())
}

// orchestratorFromRequest はリクエストコンテキストからセッション単位の
// オーケストレーターを解決する。失敗時はエラーレスポンスを書き込みfalseを返す。
func (h *WorkspaceHandler) orchestratorFromRequest(w http.ResponseWriter, r *http.Request) (*workspace.Orchestrator, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
		return nil, false
	}
	sessionID, err := middleware.SessionIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewAuthRequiredError())
		return nil, false
	}
	return h.provider.GetOrCreate(sessionID, userID), true
}

// validateGenerateRequest は生成インテントの入力を検証しGenerateInputへ変換する。
// プロンプトはHTMLタグ除去のサニタイズを通す。
func (h *WorkspaceHandler) validateGenerateRequest(req generateRequest) (*workspace.GenerateInput, *model.APIError) {
	prompt := h.sanitizer.SanitizeText(req.Prompt)
	if strings.TrimSpace(prompt) == "" {
		return nil, model.NewInvalidPromptError()
	}

	ratio := model.AspectRatio(req.AspectRatio)
	if !ratio.IsValid() {
		return nil, model.NewInvalidAspectRatioError(req.AspectRatio)
	}

	if req.Variations < model.MinVariations || req.Variations > model.MaxVariations {
		return nil, model.NewInvalidVariationsError(req.Variations)
	}

	return &workspace.GenerateInput{
		Prompt:      prompt,
		AspectRatio: ratio,
		Variations:  req.Variations,
	}, nil
}

// writeWorkspaceState はワークスペース状態をJSONで書き込む。
func writeWorkspaceState(w http.ResponseWriter, state workspace.State) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(workspaceStateResponse{
		Generations:          state.Generations,
		SelectedImage:        state.SelectedImage,
		LastPrompt:           state.LastPrompt,
		IsSubmitting:         state.IsSubmitting,
		IsLoading:            state.IsLoading,
		ActiveConversationID: state.ActiveConversationID,
	})
}

// --- 共通ヘルパー ---

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeInvalidRequestBody はリクエストボディの解析失敗レスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeAuthRequired:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidCredentials, model.ErrCodeInvalidOTP, model.ErrCodeInvalidResetToken:
		return http.StatusUnauthorized
	case model.ErrCodeEmailNotVerified:
		return http.StatusForbidden
	case model.ErrCodeEmailTaken:
		return http.StatusConflict
	case model.ErrCodeInvalidPrompt, model.ErrCodeInvalidAspectRatio, model.ErrCodeInvalidVariations, model.ErrCodeInvalidImageURL:
		return http.StatusBadRequest
	case model.ErrCodeConversationNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodePersistenceFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
