// Package mail はSMTP経由のメール送信を提供する。
// OTP確認コード、パスワード再設定リンク、ヘルプ問い合わせの3種類の
// メールを扱う。SMTP設定が無い場合は送信をスキップし、内容をログに
// 残した上で成功として扱う（ローカル開発用の挙動）。
package mail

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Sender はメール送信のインターフェース。
type Sender interface {
	// Send は指定の宛先にHTMLメールを送信する。
	Send(to, subject, htmlBody string) error
}

// SMTPConfig はSMTP送信の設定。
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Password string
}

// SMTPSender はnet/smtpを使用したSender実装。
type SMTPSender struct {
	config SMTPConfig
	logger *slog.Logger

	// テスト用に差し替え可能な送信関数
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender はSMTPSenderを生成する。
func NewSMTPSender(config SMTPConfig, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		config:   config,
		logger:   logger,
		sendMail: smtp.SendMail,
	}
}

// Send はHTMLメールを1通送信する。
func (s *SMTPSender) Send(to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	auth := smtp.PlainAuth("", s.config.From, s.config.Password, s.config.Host)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: AdFleek <%s>\r\n", s.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	if err := s.sendMail(addr, auth, s.config.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	s.logger.Info("mail sent",
		slog.String("to", to),
		slog.String("subject", subject),
	)
	return nil
}

// NopSender はSMTP未設定時のSender実装。
// 送信せず、宛先と件名のみをログに残して成功を返す。
type NopSender struct {
	logger *slog.Logger
}

// NewNopSender はNopSenderを生成する。
func NewNopSender(logger *slog.Logger) *NopSender {
	return &NopSender{logger: logger}
}

// Send は何も送信せずログのみ残す。
func (s *NopSender) Send(to, subject, htmlBody string) error {
	s.logger.Warn("mail sending skipped (SMTP not configured)",
		slog.String("to", to),
		slog.String("subject", subject),
	)
	return nil
}

// compile-time interface checks
var (
	_ Sender = (*SMTPSender)(nil)
	_ Sender = (*NopSender)(nil)
)
