// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, generation, library, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAuthRequired         = "AUTH_REQUIRED"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken           = "EMAIL_TAKEN"
	ErrCodeEmailNotVerified     = "EMAIL_NOT_VERIFIED"
	ErrCodeInvalidOTP           = "INVALID_OTP"
	ErrCodeInvalidResetToken    = "INVALID_RESET_TOKEN"
	ErrCodeInvalidPrompt        = "INVALID_PROMPT"
	ErrCodeInvalidAspectRatio   = "INVALID_ASPECT_RATIO"
	ErrCodeInvalidVariations    = "INVALID_VARIATIONS"
	ErrCodeConversationNotFound = "CONVERSATION_NOT_FOUND"
	ErrCodePersistenceFailure   = "PERSISTENCE_FAILURE"
	ErrCodeInvalidImageURL      = "INVALID_IMAGE_URL"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
)

// NewAuthRequiredError は未認証エラーを生成する。
func NewAuthRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthRequired,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// ユーザー不在とパスワード不一致を区別しないメッセージを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスでサインアップしてください。",
	}
}

// NewEmailNotVerifiedError はメール未検証エラーを生成する。
func NewEmailNotVerifiedError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailNotVerified,
		Message:  "メールアドレスの検証が完了していません。",
		Category: "auth",
		Action:   "メールに届いた確認コードを入力してください。",
	}
}

// NewInvalidOTPError はOTP検証失敗エラーを生成する。
func NewInvalidOTPError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidOTP,
		Message:  "確認コードが正しくないか、有効期限が切れています。",
		Category: "auth",
		Action:   "コードを確認するか、再送信してください。",
	}
}

// NewInvalidResetTokenError はパスワード再設定トークンの検証失敗エラーを生成する。
func NewInvalidResetTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidResetToken,
		Message:  "パスワード再設定リンクが無効か、有効期限が切れています。",
		Category: "auth",
		Action:   "再設定メールをもう一度リクエストしてください。",
	}
}

// NewInvalidPromptError は無効なプロンプトエラーを生成する。
func NewInvalidPromptError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPrompt,
		Message:  "プロンプトを入力してください。",
		Category: "validation",
		Action:   "生成したい画像の内容をテキストで入力してください。",
	}
}

// NewInvalidAspectRatioError は無効な縦横比エラーを生成する。
func NewInvalidAspectRatioError(ratio string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAspectRatio,
		Message:  fmt.Sprintf("無効な縦横比です: %s", ratio),
		Category: "validation",
		Action:   "縦横比には 1:1、16:9、9:16、4:3 のいずれかを指定してください。",
	}
}

// NewInvalidVariationsError は無効なバリエーション数エラーを生成する。
func NewInvalidVariationsError(n int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidVariations,
		Message:  fmt.Sprintf("無効なバリエーション数です: %d", n),
		Category: "validation",
		Action:   fmt.Sprintf("バリエーション数は%dから%dの範囲で指定してください。", MinVariations, MaxVariations),
	}
}

// NewConversationNotFoundError は会話未検出エラーを生成する。
// 他ユーザー所有の会話への参照も同一のエラーになり、存在有無を区別できない。
func NewConversationNotFoundError(conversationID string) *APIError {
	return &APIError{
		Code:     ErrCodeConversationNotFound,
		Message:  fmt.Sprintf("指定された会話が見つかりません: %s", conversationID),
		Category: "generation",
		Action:   "履歴から会話を選び直すか、新しい会話を開始してください。",
	}
}

// NewPersistenceFailureError は永続化失敗エラーを生成する。
func NewPersistenceFailureError() *APIError {
	return &APIError{
		Code:     ErrCodePersistenceFailure,
		Message:  "生成結果の保存に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidImageURLError は無効な画像URLエラーを生成する。
func NewInvalidImageURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImageURL,
		Message:  fmt.Sprintf("無効な画像URLです: %s", reason),
		Category: "library",
		Action:   "生成された画像のURLのみ保存できます。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
