package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type mockMailSender struct {
	sendFn func(to, subject, htmlBody string) error
}

func (m *mockMailSender) Send(to, subject, htmlBody string) error {
	if m.sendFn != nil {
		return m.sendFn(to, subject, htmlBody)
	}
	return nil
}

// バリデーションエラーごとに適切なエラーコードが返ることを確認するテスト
func TestHelpSendQuery_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{
			name:     "短すぎる名前",
			body:     `{"name":"A","email":"user@example.com","message":"ロゴの色を変更する方法を教えてください"}`,
			wantCode: "INVALID_NAME",
		},
		{
			name:     "不正なメールアドレス",
			body:     `{"name":"田中","email":"not-an-email","message":"ロゴの色を変更する方法を教えてください"}`,
			wantCode: "INVALID_EMAIL",
		},
		{
			name:     "短すぎる本文",
			body:     `{"name":"田中","email":"user@example.com","message":"短い"}`,
			wantCode: "INVALID_MESSAGE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHelpHandler(&mockMailSender{}, "support@adfleek.example.com")

			req := httptest.NewRequest(http.MethodPost, "/api/help", bytes.NewReader([]byte(tt.body)))
			rec := httptest.NewRecorder()

			h.SendQuery(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if resp := decodeErrorResponse(t, rec); resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

// 問い合わせがサポート宛先に転送されることを確認するテスト
func TestHelpSendQuery_Valid_SendsToSupport(t *testing.T) {
	var capturedTo, capturedBody string
	sender := &mockMailSender{
		sendFn: func(to, subject, htmlBody string) error {
			capturedTo = to
			capturedBody = htmlBody
			return nil
		},
	}
	h := NewHelpHandler(sender, "support@adfleek.example.com")

	body := []byte(`{"name":"田中","email":"User@Example.com","message":"ロゴの色を変更する方法を教えてください"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/help", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.SendQuery(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if capturedTo != "support@adfleek.example.com" {
		t.Errorf("to = %q, want support@adfleek.example.com", capturedTo)
	}
	// メールアドレスは小文字に正規化される
	if !strings.Contains(capturedBody, "user@example.com") {
		t.Errorf("body does not contain the normalized sender address: %q", capturedBody)
	}
	if !strings.Contains(capturedBody, "田中") {
		t.Errorf("body does not contain the sender name: %q", capturedBody)
	}
}

// メール送信失敗時に502になることを確認するテスト
func TestHelpSendQuery_SendFailure_Returns502(t *testing.T) {
	sender := &mockMailSender{
		sendFn: func(to, subject, htmlBody string) error {
			return errors.New("smtp: connection refused")
		},
	}
	h := NewHelpHandler(sender, "support@adfleek.example.com")

	body := []byte(`{"name":"田中","email":"user@example.com","message":"ロゴの色を変更する方法を教えてください"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/help", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.SendQuery(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	if resp := decodeErrorResponse(t, rec); resp.Code != "MAIL_SEND_FAILED" {
		t.Errorf("code = %q, want MAIL_SEND_FAILED", resp.Code)
	}
}

// 不正なJSONボディが400になることを確認するテスト
func TestHelpSendQuery_InvalidJSON_Returns400(t *testing.T) {
	h := NewHelpHandler(&mockMailSender{}, "support@adfleek.example.com")

	req := httptest.NewRequest(http.MethodPost, "/api/help", bytes.NewReader([]byte(`{broken`)))
	rec := httptest.NewRecorder()

	h.SendQuery(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
