package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

const (
	csrfCookieName = "csrf_token"

	// CSRFFieldName はテンプレートに埋め込む隠しフィールド名。
	CSRFFieldName = "csrf_token"

	csrfHeaderName = "X-CSRF-Token"
	csrfCookieTTL  = 24 * time.Hour
)

var csrfContextKey = contextKey("csrf_token")

var (
	errCSRFNoCookie = errors.New("csrf cookie not present")
	errCSRFNoToken  = errors.New("csrf token not submitted")
	errCSRFMismatch = errors.New("csrf token mismatch")
)

// CSRFConfig はCSRFミドルウェアの設定。
type CSRFConfig struct {
	CookieSecure bool
	CookieDomain string
}

// NewCSRFMiddleware はダブルサブミットCookie方式のCSRF対策ミドルウェアを返す。
// GET/HEAD/OPTIONSではトークンを発行してコンテキストに載せ、
// それ以外のメソッドではCookieと送信トークンの一致を要求する。
func NewCSRFMiddleware(config CSRFConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				token = issueCSRFToken(w, r, config)
			default:
				var err error
				if token, err = verifyCSRFToken(r); err != nil {
					slog.Warn("rejected request",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("reason", err.Error()),
					)
					http.Error(w, "CSRF token validation failed", http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(ContextWithCSRFToken(r.Context(), token)))
		})
	}
}

// CSRFTokenFromContext はコンテキストのCSRFトークンを返す。
func CSRFTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(csrfContextKey).(string)
	return token
}

// ContextWithCSRFToken はコンテキストにCSRFトークンを注入する。
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfContextKey, token)
}

// verifyCSRFToken はCookieのトークンとヘッダーまたはフォームのトークンを比較する。
func verifyCSRFToken(r *http.Request) (string, error) {
	cookie, err := r.Cookie(csrfCookieName)
	if err != nil || cookie.Value == "" {
		return "", errCSRFNoCookie
	}

	submitted := r.Header.Get(csrfHeaderName)
	if submitted == "" {
		submitted = r.PostFormValue(CSRFFieldName)
	}
	if submitted == "" {
		return "", errCSRFNoToken
	}
	if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(submitted)) != 1 {
		return "", errCSRFMismatch
	}
	return cookie.Value, nil
}

// issueCSRFToken は既存のCookieがあればその値を、なければ新しいトークンを発行して返す。
func issueCSRFToken(w http.ResponseWriter, r *http.Request, config CSRFConfig) string {
	if cookie, err := r.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		slog.Error("failed to generate CSRF token", slog.String("error", err.Error()))
		return ""
	}
	token := hex.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   int(csrfCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}
