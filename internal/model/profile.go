// Package model はドメインモデルを定義する。
package model

import "time"

// Session はIdPが発行した認証済みセッションを表す。
// アプリケーションでは永続化せず、リクエストごとにCookieから復元する。
type Session struct {
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
}

// Tokens はIdPから受け取ったトークンの組を表す。
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // アクセストークンの有効期間（秒）
}

// IsZero はアクセストークンが空かどうかを返す。
func (t Tokens) IsZero() bool {
	return t.AccessToken == ""
}

// Profile はprofilesテーブルの1行を表す。
// IDはIdPのユーザーIDと1:1で対応する。
type Profile struct {
	ID        string
	Email     string // IdP側メールアドレスのミラー。遅れて追従することがある
	Name      string
	Introduce string
	AvatarURL string // 未設定の場合は空文字列（DB上はNULL）
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileUpdate はプロフィールフォームから更新されるフィールド。
type ProfileUpdate struct {
	Name      string
	Introduce string
	AvatarURL string
}

// Upload はアップロードされたファイルを表す。
type Upload struct {
	Filename    string
	ContentType string // クライアントが申告したMIMEタイプ
	Size        int64
	Data        []byte
}
