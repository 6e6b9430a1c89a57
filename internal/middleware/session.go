// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/profilehub/internal/model"
	"github.com/hitoshi/profilehub/internal/viewstate"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionContextKey はリクエストコンテキストにセッションを格納するためのキー。
var sessionContextKey = contextKey("session")

// SessionResolver はCookieのトークンからセッションを解決する。
// auth.Resolverが実装する。
type SessionResolver interface {
	Resolve(ctx context.Context, tokens model.Tokens) (*model.Session, *model.Tokens)
}

// ProfileFinder はプロフィールの検索に必要なインターフェース。
// repository.ProfileRepositoryの部分集合として定義する。
type ProfileFinder interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
}

// ProfileReconciler はプロフィールのメールアドレスをセッションに追従させる。
type ProfileReconciler interface {
	Reconcile(ctx context.Context, session *model.Session, profile *model.Profile) *model.Profile
}

// SessionConfig はセッションミドルウェアの依存関係。
type SessionConfig struct {
	Resolver   SessionResolver
	Profiles   ProfileFinder
	Reconciler ProfileReconciler
	Cookie     CookieConfig
}

// NewSessionMiddleware はCookieのトークンからセッションを解決し、
// プロフィールの整合処理を経て画面表示用のViewModelを組み立てるミドルウェアを返す。
// 未ログインのリクエストも通過させる（アクセス制御はRequireSession/RequireGuestで行う）。
// トークンがリフレッシュされた場合はCookieを書き換える。
func NewSessionMiddleware(config SessionConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tokens := ReadTokens(r)

			// 1. セッションを解決
			session, refreshed := config.Resolver.Resolve(ctx, tokens)
			if refreshed != nil {
				WriteTokenCookies(w, config.Cookie, *refreshed)
			} else if session == nil && !tokens.IsZero() {
				// 無効なトークンは削除しておく
				ClearTokenCookies(w, config.Cookie)
			}

			// 2. プロフィールを取得し、メールアドレスを整合
			var profile *model.Profile
			if session != nil {
				found, err := config.Profiles.FindByID(ctx, session.UserID)
				if err != nil {
					slog.Warn("failed to load profile",
						slog.String("user_id", session.UserID),
						slog.String("error", err.Error()),
					)
				} else {
					profile = config.Reconciler.Reconcile(ctx, session, found)
				}
			}

			// 3. ViewModelを組み立ててコンテキストに注入
			store := viewstate.NewStore()
			store.Hydrate(session, profile)

			ctx = viewstate.WithStore(ctx, store)
			if session != nil {
				ctx = ContextWithSession(ctx, session)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession は未ログインのリクエストをログイン画面へリダイレクトするミドルウェアを返す。
func RequireSession(loginPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if SessionFromContext(r.Context()) == nil {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireGuest はログイン済みのリクエストをトップページへリダイレクトするミドルウェアを返す。
func RequireGuest(homePath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if SessionFromContext(r.Context()) != nil {
				http.Redirect(w, r, homePath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionFromContext はリクエストコンテキストからセッションを取得する。
// 未ログインの場合はnilを返す。
func SessionFromContext(ctx context.Context) *model.Session {
	session, _ := ctx.Value(sessionContextKey).(*model.Session)
	return session
}

// ContextWithSession はコンテキストにセッションを注入する。
func ContextWithSession(ctx context.Context, session *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}
