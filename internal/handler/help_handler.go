package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/adfleek/internal/mail"
	"github.com/hitoshi/adfleek/internal/model"
)

const (
	// minHelpNameLength は問い合わせフォームの名前の最小文字数。
	minHelpNameLength = 2
	// minHelpMessageLength は問い合わせ本文の最小文字数。
	minHelpMessageLength = 10
)

// HelpHandler はサポート問い合わせのHTTPハンドラー。
// フォーム内容をサポート宛先にメール転送する。
type HelpHandler struct {
	sender       mail.Sender
	supportEmail string
}

// NewHelpHandler はHelpHandlerを生成する。
func NewHelpHandler(sender mail.Sender, supportEmail string) *HelpHandler {
	return &HelpHandler{
		sender:       sender,
		supportEmail: supportEmail,
	}
}

// helpQueryRequest は問い合わせリクエストのボディ。
type helpQueryRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// SendQuery は問い合わせ内容をサポート宛にメールする。
// POST /api/help
func (h *HelpHandler) SendQuery(w http.ResponseWriter, r *http.Request) {
	var req helpQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(strings.ToLower(req.Email))
	message := strings.TrimSpace(req.Message)

	if len([]rune(name)) < minHelpNameLength {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_NAME",
			Message:  "お名前が短すぎます。",
			Category: "validation",
			Action:   "2文字以上で入力してください。",
		})
		return
	}
	if !isValidEmail(email) {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_EMAIL",
			Message:  "メールアドレスの形式が正しくありません。",
			Category: "validation",
			Action:   "有効なメールアドレスを入力してください。",
		})
		return
	}
	if len([]rune(message)) < minHelpMessageLength {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_MESSAGE",
			Message:  "お問い合わせ内容が短すぎます。",
			Category: "validation",
			Action:   "10文字以上で入力してください。",
		})
		return
	}

	subject, body := mail.HelpQueryEmail(name, email, message)
	if err := h.sender.Send(h.supportEmail, subject, body); err != nil {
		slog.Error("failed to send help query", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusBadGateway, &model.APIError{
			Code:     "MAIL_SEND_FAILED",
			Message:  "お問い合わせの送信に失敗しました。",
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "sent",
	})
}
