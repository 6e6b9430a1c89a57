// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/hitoshi/profilehub/internal/form"
	"github.com/hitoshi/profilehub/internal/middleware"
	"github.com/hitoshi/profilehub/internal/model"
	"github.com/hitoshi/profilehub/internal/profile"
)

// Cookie名と有効期間
const (
	verifierCookie       = "pkce_verifier"
	signupVerifierCookie = "pkce_verifier_signup"
	resetVerifierCookie  = "pkce_verifier_reset"
	flashCookie          = "flash"
	flashErrCookie       = "flash_error"

	verifierTTL = 10 * time.Minute
	flashTTL    = time.Minute
)

// 成功時のメッセージ
const (
	msgConfirmationSent = "確認用のURLを記載したメールを送信しました。"
	msgResetMailSent    = "パスワードリセットに必要なメールを送信しました。"
	msgPasswordUpdated  = "パスワードは正常に更新されました。"
	msgProfileUpdated   = "プロフィールを更新しました。"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignUp(ctx context.Context, name, email, password string) (string, error)
	SignIn(ctx context.Context, email, password string) (*model.Tokens, error)
	LoginURL() (string, string, error)
	HandleCallback(ctx context.Context, code, verifier string) (*model.Tokens, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ChangePassword(ctx context.Context, session *model.Session, password string) error
	ChangeEmail(ctx context.Context, session *model.Session, email string) error
	Logout(ctx context.Context, session *model.Session) error
}

// ProfileEditorInterface はプロフィール編集ハンドラーが必要とするサービスインターフェース。
type ProfileEditorInterface interface {
	Update(ctx context.Context, session *model.Session, currentAvatarURL string, input profile.EditInput) error
}

// HealthChecker はDB接続の確認に使う。*sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// HandlerConfig はハンドラーの設定。
type HandlerConfig struct {
	Cookie         middleware.CookieConfig
	AvatarMaxBytes int64
}

// Handler は画面・フォームのHTTPハンドラー。
type Handler struct {
	auth     AuthServiceInterface
	profiles ProfileEditorInterface
	runner   *form.Runner
	renderer *Renderer
	config   HandlerConfig
}

// NewHandler はHandlerを生成する。
func NewHandler(auth AuthServiceInterface, profiles ProfileEditorInterface, runner *form.Runner, renderer *Renderer, config HandlerConfig) *Handler {
	return &Handler{
		auth:     auth,
		profiles: profiles,
		runner:   runner,
		renderer: renderer,
		config:   config,
	}
}

// submissionKey は同時送信を判定するための送信者キーを返す。
// ログイン済みの場合はユーザーID、未ログインの場合はCSRFトークン（ブラウザ単位）を使う。
func submissionKey(r *http.Request) string {
	if session := middleware.SessionFromContext(r.Context()); session != nil {
		return "user:" + session.UserID
	}
	return "browser:" + middleware.CSRFTokenFromContext(r.Context())
}

// run はフォーム送信を実行する。
func (h *Handler) run(r *http.Request, formName, successMessage string, fn func(ctx context.Context) error) form.Outcome {
	return h.runner.Run(r.Context(), form.Submission{
		Key:            submissionKey(r),
		Form:           formName,
		SuccessMessage: successMessage,
	}, fn)
}

// busy は同じフォームの送信が処理中かどうかを返す。
func (h *Handler) busy(r *http.Request, formName string) bool {
	return h.runner.StateOf(submissionKey(r), formName) == form.Submitting
}

// redirectWithFlash はメッセージをCookieに載せてリダイレクトする（POST/Redirect/GET）。
func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, to string, outcome form.Outcome) {
	name := flashCookie
	if !outcome.OK() {
		name = flashErrCookie
	}
	if outcome.Message != "" {
		value := base64.RawURLEncoding.EncodeToString([]byte(outcome.Message))
		middleware.SetShortCookie(w, h.config.Cookie, name, value, flashTTL)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// popFlash はフラッシュメッセージを取り出して削除する。
func (h *Handler) popFlash(w http.ResponseWriter, r *http.Request, data *PageData) {
	for _, name := range []string{flashCookie, flashErrCookie} {
		c, err := r.Cookie(name)
		if err != nil || c.Value == "" {
			continue
		}
		middleware.ClearCookie(w, h.config.Cookie, name)
		msg, err := base64.RawURLEncoding.DecodeString(c.Value)
		if err != nil {
			continue
		}
		data.Message = string(msg)
		data.Failed = name == flashErrCookie
	}
}

// applyOutcome は送信結果をページデータに反映する。
func applyOutcome(data *PageData, outcome form.Outcome) {
	data.Message = outcome.Message
	data.Failed = !outcome.OK()
}
