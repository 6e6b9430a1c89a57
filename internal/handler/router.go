package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/profilehub/internal/auth"
	"github.com/hitoshi/profilehub/internal/middleware"
)

// DefaultMaxBodyBytes はリクエストボディの上限の既定値。
// アバターのサイズ超過をバリデーションメッセージとして返せるよう、アバター上限より大きく取る。
const DefaultMaxBodyBytes int64 = 10 << 20

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Session      middleware.SessionConfig
	Logger       *slog.Logger
	StatusMetric middleware.StatusRecorder
	MaxBodyBytes int64
	ImageOrigins []string

	// 画面
	Handler *Handler

	// 運用
	HealthChecker HealthChecker
	Metrics       http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Session → Logging → BodyLimit → CSRF
//
// Loggingはuser_idを記録するためSessionの後に置く。
// /health と /metrics、静的ファイルはSession以降のチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.ImageOrigins...))

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}
	r.Handle("/static/*", staticHandler())

	h := deps.Handler
	cookie := deps.Session.Cookie
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.Session))
		r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusMetric))
		r.Use(middleware.NewBodyLimitMiddleware(maxBody))
		r.Use(middleware.NewCSRFMiddleware(middleware.CSRFConfig{
			CookieSecure: cookie.Secure,
			CookieDomain: cookie.Domain,
		}))

		r.Get("/", h.Home)
		r.Get("/api/me", h.Me)

		r.Route("/auth", func(r chi.Router) {
			// ログイン状態を問わないルート
			r.Get("/callback", h.Callback)
			r.Get("/reset-password/confirm", h.ResetPasswordConfirmPage)
			r.Post("/reset-password/confirm", h.ResetPasswordConfirm)

			// 未ログインユーザー専用
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireGuest("/"))

				r.Get("/signup", h.SignUpPage)
				r.Post("/signup", h.SignUp)
				r.Get("/login", h.LoginPage)
				r.Post("/login", h.Login)
				r.Get("/login/provider", h.LoginWithProvider)
				r.Get("/reset-password", h.ResetPasswordPage)
				r.Post("/reset-password", h.ResetPassword)
			})
		})

		// ログインユーザー専用
		r.Route("/settings", func(r chi.Router) {
			r.Use(middleware.RequireSession(auth.LoginPath))

			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/settings/profile", http.StatusSeeOther)
			})
			r.Get("/profile", h.ProfilePage)
			r.Post("/profile", h.UpdateProfile)
			r.Get("/email", h.EmailPage)
			r.Post("/email", h.ChangeEmail)
			r.Get("/password", h.PasswordPage)
			r.Post("/password", h.ChangePassword)
			r.Get("/logout", h.LogoutPage)
			r.Post("/logout", h.Logout)
		})
	})

	return r
}
