package middleware

import (
	"net/http"
	"time"

	"github.com/hitoshi/profilehub/internal/model"
)

// トークンを保持するCookieの名前
const (
	AccessTokenCookie  = "sb-access-token"
	RefreshTokenCookie = "sb-refresh-token"
)

// refreshTokenMaxAge はリフレッシュトークンCookieの有効期間。
const refreshTokenMaxAge = 30 * 24 * time.Hour

// CookieConfig はCookie発行時の共通設定。
type CookieConfig struct {
	Secure bool
	Domain string
}

// ReadTokens はリクエストのCookieからトークンを読み取る。
func ReadTokens(r *http.Request) model.Tokens {
	var tokens model.Tokens
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		tokens.AccessToken = c.Value
	}
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		tokens.RefreshToken = c.Value
	}
	return tokens
}

// WriteTokenCookies はトークンをHttpOnly Cookieに書き込む。
// アクセストークンCookieはリフレッシュに使うため、トークン自体の有効期限より長く保持する。
func WriteTokenCookies(w http.ResponseWriter, config CookieConfig, tokens model.Tokens) {
	maxAge := int(refreshTokenMaxAge.Seconds())
	http.SetCookie(w, newCookie(config, AccessTokenCookie, tokens.AccessToken, maxAge))
	if tokens.RefreshToken != "" {
		http.SetCookie(w, newCookie(config, RefreshTokenCookie, tokens.RefreshToken, maxAge))
	}
}

// ClearTokenCookies はトークンCookieを削除する。
func ClearTokenCookies(w http.ResponseWriter, config CookieConfig) {
	http.SetCookie(w, newCookie(config, AccessTokenCookie, "", -1))
	http.SetCookie(w, newCookie(config, RefreshTokenCookie, "", -1))
}

// SetShortCookie は短期間だけ保持するHttpOnly Cookieを書き込む（PKCE検証子、フラッシュメッセージ等）。
func SetShortCookie(w http.ResponseWriter, config CookieConfig, name, value string, ttl time.Duration) {
	http.SetCookie(w, newCookie(config, name, value, int(ttl.Seconds())))
}

// ClearCookie は指定したCookieを削除する。
func ClearCookie(w http.ResponseWriter, config CookieConfig, name string) {
	http.SetCookie(w, newCookie(config, name, "", -1))
}

func newCookie(config CookieConfig, name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
