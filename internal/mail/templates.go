package mail

import (
	"fmt"
	"html"
	"strings"
)

// OTPEmail はサインアップ時の確認コードメールの件名と本文を生成する。
func OTPEmail(code string) (subject, body string) {
	subject = "AdFleek メールアドレスの確認"
	body = fmt.Sprintf(`
  <div style="font-family: Arial, sans-serif; padding: 20px; line-height: 1.6;">
    <h2 style="color: #333;">メールアドレスの確認</h2>
    <p>AdFleekへのサインアップありがとうございます。以下の確認コードを入力してください。</p>
    <p style="font-size: 28px; font-weight: bold; letter-spacing: 6px; background-color: #f9f9f9; border: 1px solid #ddd; padding: 15px; border-radius: 5px; text-align: center;">
      %s
    </p>
    <p>コードの有効期限は10分です。心当たりがない場合はこのメールを無視してください。</p>
  </div>`, html.EscapeString(code))
	return subject, body
}

// PasswordResetEmail はパスワード再設定リンクメールの件名と本文を生成する。
func PasswordResetEmail(resetURL string) (subject, body string) {
	subject = "AdFleek パスワードの再設定"
	body = fmt.Sprintf(`
  <div style="font-family: Arial, sans-serif; padding: 20px; line-height: 1.6;">
    <h2 style="color: #333;">パスワードの再設定</h2>
    <p>以下のリンクから新しいパスワードを設定してください。リンクの有効期限は1時間です。</p>
    <p><a href="%s" style="display: inline-block; background-color: #333; color: #fff; padding: 12px 24px; border-radius: 5px; text-decoration: none;">パスワードを再設定する</a></p>
    <p>心当たりがない場合はこのメールを無視してください。パスワードは変更されません。</p>
  </div>`, html.EscapeString(resetURL))
	return subject, body
}

// HelpQueryEmail はヘルプ問い合わせメールの件名と本文を生成する。
// 本文はサニタイズ済みのプレーンテキストを前提とし、改行のみ<br>に変換する。
func HelpQueryEmail(name, email, message string) (subject, body string) {
	subject = fmt.Sprintf("New AdFleek Help Query from %s", name)
	escaped := html.EscapeString(message)
	body = fmt.Sprintf(`
  <div style="font-family: Arial, sans-serif; padding: 20px; line-height: 1.6;">
    <h2 style="color: #333;">New Help Query from AdFleek</h2>
    <p><strong>From:</strong> %s</p>
    <p><strong>Email:</strong> <a href="mailto:%s">%s</a></p>
    <hr style="margin: 20px 0; border: none; border-top: 1px solid #eee;" />
    <h3>Message:</h3>
    <p style="background-color: #f9f9f9; border: 1px solid #ddd; padding: 15px; border-radius: 5px;">
      %s
    </p>
  </div>`, html.EscapeString(name), html.EscapeString(email), html.EscapeString(email), strings.ReplaceAll(escaped, "\n", "<br>"))
	return subject, body
}
