package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/profilehub/internal/auth"
	"github.com/hitoshi/profilehub/internal/form"
	"github.com/hitoshi/profilehub/internal/middleware"
)

// confirmationTTL はメール内リンク経由のコード交換に使う検証子の保持期間。
const confirmationTTL = 24 * time.Hour

// SignUpPage はサインアップ画面を表示する。
// GET /auth/signup
func (h *Handler) SignUpPage(w http.ResponseWriter, r *http.Request) {
	data := &PageData{Title: "サインアップ", Busy: h.busy(r, "signup")}
	h.popFlash(w, r, data)
	h.renderer.Render(w, r, http.StatusOK, pageSignUp, data)
}

// SignUp はサインアップフォームを処理する。
// POST /auth/signup
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PostFormValue("name"))
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	data := &PageData{
		Title:  "サインアップ",
		Values: map[string]string{"name": name, "email": email},
	}
	if errs := form.ValidateSignUp(name, email, password); errs.Has() {
		data.Errors = errs
		h.renderer.Render(w, r, http.StatusUnprocessableEntity, pageSignUp, data)
		return
	}

	var verifier string
	outcome := h.run(r, "signup", msgConfirmationSent, func(ctx context.Context) error {
		v, err := h.auth.SignUp(ctx, name, email, password)
		verifier = v
		return err
	})
	if outcome.OK() {
		middleware.SetShortCookie(w, h.config.Cookie, signupVerifierCookie, verifier, confirmationTTL)
		data.Values = nil
	}
	applyOutcome(data, outcome)
	h.renderer.Render(w, r, http.StatusOK, pageSignUp, data)
}

// LoginPage はログイン画面を表示する。
// GET /auth/login
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	data := &PageData{Title: "ログイン", Busy: h.busy(r, "login")}
	h.popFlash(w, r, data)
	h.renderer.Render(w, r, http.StatusOK, pageLogin, data)
}

// Login はメールアドレスとパスワードによるログインを処理する。
// POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	data := &PageData{Title: "ログイン", Values: map[string]string{"email": email}}
	if errs := form.ValidateLogin(email, password); errs.Has() {
		data.Errors = errs
		h.renderer.Render(w, r, http.StatusUnprocessableEntity, pageLogin, data)
		return
	}

	outcome := h.run(r, "login", "", func(ctx context.Context) error {
		tokens, err := h.auth.SignIn(ctx, email, password)
		if err != nil {
			return err
		}
		middleware.WriteTokenCookies(w, h.config.Cookie, *tokens)
		return nil
	})
	if outcome.OK() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	applyOutcome(data, outcome)
	h.renderer.Render(w, r, http.StatusOK, pageLogin, data)
}

// LoginWithProvider は外部プロバイダー経由のログインを開始する。
// GET /auth/login/provider
func (h *Handler) LoginWithProvider(w http.ResponseWriter, r *http.Request) {
	loginURL, verifier, err := h.auth.LoginURL()
	if err != nil {
		slog.Error("failed to build login url", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	middleware.SetShortCookie(w, h.config.Cookie, verifierCookie, verifier, verifierTTL)
	http.Redirect(w, r, loginURL, http.StatusFound)
}

// Callback はIdPからのリダイレクトを処理し、認可コードをセッションに交換する。
// プロバイダーログインとサインアップ確認メールの両方から呼ばれる。
// codeがなければ何もせずトップへ戻す。
// GET /auth/callback?code=xxx
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	if desc := r.URL.Query().Get("error_description"); desc != "" {
		slog.Warn("auth callback returned error", slog.String("error", desc))
		h.redirectWithFlash(w, r, auth.LoginPath, form.Outcome{State: form.Failed, Message: form.ErrorPrefix + desc})
		return
	}
	if r.URL.Query().Get("code") == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := h.exchangeCode(w, r, verifierCookie, signupVerifierCookie); err != nil {
		h.redirectWithFlash(w, r, auth.LoginPath, form.Outcome{State: form.Failed, Message: form.ErrorMessage(err)})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// exchangeCode はクエリの認可コードとCookieの検証子でセッションを確立し、トークンCookieを書き込む。
// 検証子はcookieNamesの順に探し、最初に見つかったものを使って消去する。
func (h *Handler) exchangeCode(w http.ResponseWriter, r *http.Request, cookieNames ...string) error {
	var verifier, used string
	for _, name := range cookieNames {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			verifier, used = c.Value, name
			break
		}
	}

	tokens, err := h.auth.HandleCallback(r.Context(), r.URL.Query().Get("code"), verifier)
	if err != nil {
		slog.Error("auth callback failed", slog.String("error", err.Error()))
		return err
	}

	if used != "" {
		middleware.ClearCookie(w, h.config.Cookie, used)
	}
	middleware.WriteTokenCookies(w, h.config.Cookie, *tokens)
	return nil
}

// ResetPasswordPage はパスワードリセット依頼画面を表示する。
// GET /auth/reset-password
func (h *Handler) ResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	data := &PageData{Title: "パスワードを忘れた場合", Busy: h.busy(r, "reset_password")}
	h.popFlash(w, r, data)
	h.renderer.Render(w, r, http.StatusOK, pageResetPassword, data)
}

// ResetPassword はパスワードリセットメールの送信を依頼する。セッションは作成しない。
// POST /auth/reset-password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))

	data := &PageData{Title: "パスワードを忘れた場合", Values: map[string]string{"email": email}}
	if errs := form.ValidateEmail(email); errs.Has() {
		data.Errors = errs
		h.renderer.Render(w, r, http.StatusUnprocessableEntity, pageResetPassword, data)
		return
	}

	var verifier string
	outcome := h.run(r, "reset_password", msgResetMailSent, func(ctx context.Context) error {
		v, err := h.auth.RequestPasswordReset(ctx, email)
		verifier = v
		return err
	})
	if outcome.OK() {
		middleware.SetShortCookie(w, h.config.Cookie, resetVerifierCookie, verifier, confirmationTTL)
		data.Values = nil
	}
	applyOutcome(data, outcome)
	h.renderer.Render(w, r, http.StatusOK, pageResetPassword, data)
}

// ResetPasswordConfirmPage はパスワード再設定画面を表示する。
// メール内リンクから?code=付きで開かれた場合は、先にセッションを確立してからリダイレクトする。
// GET /auth/reset-password/confirm
func (h *Handler) ResetPasswordConfirmPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("code") != "" {
		if err := h.exchangeCode(w, r, resetVerifierCookie); err != nil {
			h.redirectWithFlash(w, r, auth.ResetConfirmPath, form.Outcome{State: form.Failed, Message: form.ErrorMessage(err)})
			return
		}
		http.Redirect(w, r, auth.ResetConfirmPath, http.StatusSeeOther)
		return
	}

	data := &PageData{Title: "パスワード再設定", Busy: h.busy(r, "password")}
	h.popFlash(w, r, data)
	h.renderer.Render(w, r, http.StatusOK, pageResetPasswordConfirm, data)
}

// ResetPasswordConfirm は新しいパスワードを設定する。
// POST /auth/reset-password/confirm
func (h *Handler) ResetPasswordConfirm(w http.ResponseWriter, r *http.Request) {
	h.changePassword(w, r, "パスワード再設定", pageResetPasswordConfirm)
}
