// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, profile, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeProfileNotFound = "PROFILE_NOT_FOUND"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewProfileNotFoundError はプロフィールが見つからない場合のエラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "プロフィールが見つかりません。",
		Category: "profile",
		Action:   "ログインし直してください。",
	}
}

// NewInternalError は内部エラーを生成する。原因はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// RemoteError は外部サービス（IdP、ストレージ）がエラーペイロードを返したことを表す。
// Error()はサービスが返したメッセージをそのまま返す。
type RemoteError struct {
	Op      string // 呼び出した操作名（例: "auth.update_user"）
	Status  int    // HTTPステータスコード
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *RemoteError) Error() string {
	return e.Message
}

// NewRemoteError はRemoteErrorを生成する。
// メッセージが空の場合はステータスコードから補う。
func NewRemoteError(op string, status int, message string) *RemoteError {
	if message == "" {
		message = fmt.Sprintf("%s failed with status %d", op, status)
	}
	return &RemoteError{Op: op, Status: status, Message: message}
}
