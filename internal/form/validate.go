// Package form はフォーム入力の検証と送信状態の管理を提供する。
package form

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/hitoshi/profilehub/internal/model"
)

// 検証エラーメッセージ
const (
	MsgInvalidEmail     = "メールアドレスの形式ではありません。"
	MsgPasswordTooShort = "6文字以上入力する必要があります。"
	MsgPasswordMismatch = "新しいパスワードと確認用パスワードが一致しません。"
	MsgNameTooShort     = "2文字以上入力する必要があります。"
	MsgAvatarRequired   = "画像をアップロードしてください。"
	MsgAvatarTooLarge   = "画像サイズを2MB以下にする必要があります。"
	MsgAvatarBadType    = "画像はjpgまたはpng形式である必要があります。"
)

const (
	minPasswordLength = 6
	minNameLength     = 2
)

// emailPattern はメールアドレスの形式を判定する。
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9_'+\-.]*[A-Za-z0-9_+\-]@([A-Za-z0-9][A-Za-z0-9\-]*\.)+[A-Za-z]{2,}$`)

// allowedAvatarTypes はアバター画像として受け付けるMIMEタイプ。
var allowedAvatarTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// FieldErrors はフィールド名ごとの検証エラーメッセージ。
type FieldErrors map[string]string

// Add はフィールドにエラーを設定する。既にエラーがある場合は上書きしない。
func (e FieldErrors) Add(field, message string) {
	if _, exists := e[field]; !exists {
		e[field] = message
	}
}

// Has はいずれかのフィールドにエラーがあるかどうかを返す。
func (e FieldErrors) Has() bool {
	return len(e) > 0
}

// IsEmail はメールアドレスの形式として妥当かどうかを返す。
func IsEmail(s string) bool {
	if !emailPattern.MatchString(s) {
		return false
	}
	return !strings.HasPrefix(s, ".") && !strings.Contains(s, "..")
}

// ValidateEmail はメールアドレス欄を検証する。
func ValidateEmail(email string) FieldErrors {
	errs := FieldErrors{}
	checkEmail(errs, "email", email)
	return errs
}

// ValidateSignUp はサインアップフォームを検証する。
func ValidateSignUp(name, email, password string) FieldErrors {
	errs := FieldErrors{}
	checkMinLength(errs, "name", name, minNameLength, MsgNameTooShort)
	checkEmail(errs, "email", email)
	checkMinLength(errs, "password", password, minPasswordLength, MsgPasswordTooShort)
	return errs
}

// ValidateLogin はログインフォームを検証する。
func ValidateLogin(email, password string) FieldErrors {
	errs := FieldErrors{}
	checkEmail(errs, "email", email)
	checkMinLength(errs, "password", password, minPasswordLength, MsgPasswordTooShort)
	return errs
}

// ValidatePasswordPair は新しいパスワードと確認用パスワードを検証する。
// 不一致のエラーは確認用フィールドに付く。
func ValidatePasswordPair(password, confirmation string) FieldErrors {
	errs := FieldErrors{}
	checkMinLength(errs, "password", password, minPasswordLength, MsgPasswordTooShort)
	checkMinLength(errs, "confirmation", confirmation, minPasswordLength, MsgPasswordTooShort)
	if !errs.Has() && password != confirmation {
		errs.Add("confirmation", MsgPasswordMismatch)
	}
	return errs
}

// ValidateProfile はプロフィール編集フォームを検証する。
// avatarがnilの場合はアバターを変更しないものとして扱う。
func ValidateProfile(name string, avatar *model.Upload, maxAvatarBytes int64) FieldErrors {
	errs := FieldErrors{}
	checkMinLength(errs, "name", name, minNameLength, MsgNameTooShort)
	if avatar != nil {
		if msg := ValidateAvatar(avatar, maxAvatarBytes); msg != "" {
			errs.Add("avatar", msg)
		}
	}
	return errs
}

// ValidateAvatar はアバター画像を検証し、問題があればメッセージを返す。
// 申告されたMIMEタイプと内容から判定したMIMEタイプの両方がjpegまたはpngである必要がある。
func ValidateAvatar(avatar *model.Upload, maxBytes int64) string {
	if avatar == nil || avatar.Size == 0 || len(avatar.Data) == 0 {
		return MsgAvatarRequired
	}
	if avatar.Size > maxBytes {
		return MsgAvatarTooLarge
	}
	if !allowedAvatarTypes[avatar.ContentType] {
		return MsgAvatarBadType
	}
	if detected := mimetype.Detect(avatar.Data); !allowedAvatarTypes[detected.String()] {
		return MsgAvatarBadType
	}
	return ""
}

func checkEmail(errs FieldErrors, field, value string) {
	if !IsEmail(value) {
		errs.Add(field, MsgInvalidEmail)
	}
}

func checkMinLength(errs FieldErrors, field, value string, minLen int, message string) {
	if utf8.RuneCountInString(value) < minLen {
		errs.Add(field, message)
	}
}
